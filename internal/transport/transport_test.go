package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/homestay/pkg/errors"
)

func TestBearerAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&BearerAuth{}).Apply(req, "secret")
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))

	empty := &http.Request{Header: make(http.Header)}
	(&BearerAuth{}).Apply(empty, "")
	assert.Empty(t, empty.Header.Get("Authorization"))
}

func TestNoAuth(t *testing.T) {
	none := &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(none, "k")
	assert.Empty(t, none.Header)
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"test":"All Data"}`, string(body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New(&BearerAuth{}, "tok")
	resp, err := c.PostJSON(context.Background(), server.URL, map[string]string{"test": "All Data"})
	require.NoError(t, err)

	body, err := ReadBody(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestReadBodyNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 600)))
	}))
	defer server.Close()

	c := New(nil, "")
	resp, err := c.PostJSON(context.Background(), server.URL, struct{}{})
	require.NoError(t, err)

	_, err = ReadBody(resp)
	require.Error(t, err)

	var fe *errors.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.Len(t, fe.Message, maxErrorBody+3)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestDoTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := New(&BearerAuth{}, "tok", WithTimeout(50*time.Millisecond))
	_, err := c.PostJSON(context.Background(), server.URL, struct{}{})
	require.Error(t, err)
	assert.True(t, errors.IsFetchError(err))
	assert.True(t, errors.IsTimeout(err))
}

func TestDoConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(nil, "").PostJSON(context.Background(), url, struct{}{})
	require.Error(t, err)

	var fe *errors.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 0, fe.StatusCode)
	assert.Equal(t, url, fe.Endpoint)
}

func TestReadBodyTooLarge(t *testing.T) {
	old := maxBodyBytes
	maxBodyBytes = 16
	t.Cleanup(func() { maxBodyBytes = old })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 17)))
	}))
	defer server.Close()

	resp, err := New(nil, "").PostJSON(context.Background(), server.URL, struct{}{})
	require.NoError(t, err)

	_, err = ReadBody(resp)
	var fe *errors.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusOK, fe.StatusCode)
	assert.Contains(t, fe.Message, "exceeds 16 bytes")

	resp, err = New(nil, "").PostJSON(context.Background(), server.URL, struct{}{})
	require.NoError(t, err)
	maxBodyBytes = 17
	body, err := ReadBody(resp)
	require.NoError(t, err)
	assert.Len(t, body, 17)
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{}
	c := New(nil, "", WithHTTPClient(shared), WithTimeout(time.Second))

	assert.Equal(t, time.Duration(0), shared.Timeout)
	assert.Equal(t, time.Second, c.http.Timeout)
	assert.NotSame(t, shared, c.http)

	New(nil, "", WithHTTPClient(http.DefaultClient), WithTimeout(time.Second))
	assert.Equal(t, time.Duration(0), http.DefaultClient.Timeout)
}
