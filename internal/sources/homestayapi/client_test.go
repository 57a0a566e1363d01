package homestayapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/homestay/internal/sources/homestayapi"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

const validBody = `{
  "response_code": "00",
  "rows": [
    [
      {"district_name": "East Khasi Hills", "block_cluster": "Mylliem", "member_id": 1},
      {"district_name": "Ri-Bhoi", "block_cluster": null, "member_id": null}
    ],
    [
      {"district_name": "East Khasi Hills", "block_cluster": "Mylliem", "member_id": 9}
    ]
  ]
}`

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req map[string]string
		assert.NoError(t, json.Unmarshal(data, &req))
		assert.Equal(t, map[string]string{"test": "All Data"}, req)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newClient(t *testing.T, endpoint string) *homestayapi.Client {
	t.Helper()
	c, err := homestayapi.New(homestayapi.Config{Endpoint: endpoint, Token: "test-token", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewRequiresToken(t *testing.T) {
	_, err := homestayapi.New(homestayapi.Config{Endpoint: "http://example.test"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTokenRequired)

	var ce *errors.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestNewDefaultsEndpoint(t *testing.T) {
	c, err := homestayapi.New(homestayapi.Config{Token: "x"})
	require.NoError(t, err)
	assert.Contains(t, c.Endpoint(), "getAllHomeStayData")
}

func TestFetchSuccess(t *testing.T) {
	server, calls := newUpstream(t, http.StatusOK, validBody)

	payload, err := newClient(t, server.URL).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "00", payload.ResponseCode)
	assert.Len(t, payload.Records(homestay.DatasetNew), 2)
	assert.Len(t, payload.Records(homestay.DatasetUpgradation), 1)
	assert.JSONEq(t, validBody, string(payload.Raw))
}

func TestFetchHTTPError(t *testing.T) {
	server, calls := newUpstream(t, http.StatusUnauthorized, `{"message":"bad token"}`)

	_, err := newClient(t, server.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "no retries")

	var fe *errors.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusUnauthorized, fe.StatusCode)
	assert.Contains(t, fe.Message, "bad token")
	assert.False(t, errors.IsInvalidResponse(err))
}

func TestFetchCanceledContext(t *testing.T) {
	server, _ := newUpstream(t, http.StatusOK, validBody)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, server.URL).Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsFetchError(err))
}

func TestFetchInvalidResponses(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		code   string
		reason string
	}{
		{"not json", `<html>maintenance</html>`, "", "not a JSON object"},
		{"json array", `[1,2]`, "", "not a JSON object"},
		{"null", `null`, "", "not a JSON object"},
		{"wrong code", `{"response_code":"01","rows":[[],[]]}`, "01", "failed to fetch valid data"},
		{"missing code", `{"rows":[[],[]]}`, "", "failed to fetch valid data"},
		{"numeric code", `{"response_code":0,"rows":[[],[]]}`, "0", "failed to fetch valid data"},
		{"one row set", `{"response_code":"00","rows":[[]]}`, "00", "insufficient data rows"},
		{"missing rows", `{"response_code":"00"}`, "00", "insufficient data rows"},
		{"rows wrong shape", `{"response_code":"00","rows":{"a":1}}`, "00", "not a list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newUpstream(t, http.StatusOK, tt.body)

			_, err := newClient(t, server.URL).Fetch(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsInvalidResponse(err))

			var ire *errors.InvalidResponseError
			require.ErrorAs(t, err, &ire)
			assert.Equal(t, tt.code, ire.ResponseCode)
			assert.Contains(t, ire.Reason, tt.reason)
			assert.Equal(t, tt.body, string(ire.Raw))
		})
	}
}

func TestDecodeAcceptsExtraRowSets(t *testing.T) {
	p, err := homestayapi.Decode([]byte(`{"response_code":"00","rows":[[],[],[{"x":1}]]}`))
	require.NoError(t, err)
	assert.Len(t, p.Rows, 3)
	assert.Empty(t, p.Records(homestay.DatasetNew))
}
