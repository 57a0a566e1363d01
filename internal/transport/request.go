package transport

import (
	"fmt"
	"io"
	"net/http"

	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/errors"
)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

// maxBodyBytes caps how much of any response body is read.
var maxBodyBytes int64 = constants.MaxResponseBytes

// ReadBody reads and closes the response body. A non-2xx status becomes a
// *errors.FetchError quoting the start of the body, and so does a body
// larger than maxBodyBytes.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.NewFetchError(endpoint, resp.StatusCode, "failed to read response body", err)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, errors.NewFetchError(endpoint, resp.StatusCode,
			fmt.Sprintf("response body exceeds %d bytes", maxBodyBytes), nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, errors.NewFetchError(endpoint, resp.StatusCode, msg, nil)
	}
	return body, nil
}
