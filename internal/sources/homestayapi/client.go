// Package homestayapi fetches homestay application data from the state
// government API and validates the envelope before anything is computed.
package homestayapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agentstation/homestay/internal/transport"
	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/logging"
)

// Config configures the upstream client.
type Config struct {
	// Endpoint is the URL that serves all homestay data.
	Endpoint string
	// Token is the bearer token. It is required.
	Token string
	// Timeout bounds a single fetch.
	Timeout time.Duration
	// HTTPClient overrides the default HTTP client (tests).
	HTTPClient *http.Client
}

// Client fetches and validates upstream payloads.
type Client struct {
	endpoint  string
	transport *transport.Client
}

// requestBody is the static body the upstream expects.
type requestBody struct {
	Test string `json:"test"`
}

// New creates a client. A missing token is a configuration error.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.NewConfigError("api", "auth token is required", errors.ErrTokenRequired)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = constants.DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultFetchTimeout
	}

	opts := []transport.Option{}
	if cfg.HTTPClient != nil {
		opts = append(opts, transport.WithHTTPClient(cfg.HTTPClient))
	}
	opts = append(opts, transport.WithTimeout(cfg.Timeout))

	return &Client{
		endpoint:  cfg.Endpoint,
		transport: transport.New(&transport.BearerAuth{}, cfg.Token, opts...),
	}, nil
}

// Endpoint returns the configured upstream URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch performs a single POST to the upstream and returns the validated
// payload. Transport failures and non-2xx statuses are *errors.FetchError;
// a body that cannot be trusted is *errors.InvalidResponseError.
func (c *Client) Fetch(ctx context.Context) (*homestay.Payload, error) {
	ctx = logging.WithEndpoint(ctx, c.endpoint)
	logger := logging.FromContext(ctx)
	start := time.Now()

	resp, err := c.transport.PostJSON(ctx, c.endpoint, requestBody{Test: constants.RequestBodyValue})
	if err != nil {
		return nil, err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	payload, err := Decode(body)
	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(body)).Msg("Upstream returned an invalid payload")
		return nil, err
	}

	logger.Debug().
		Dur("duration", time.Since(start)).
		Int("bytes", len(body)).
		Int("new_records", len(payload.Records(homestay.DatasetNew))).
		Int("upgradation_records", len(payload.Records(homestay.DatasetUpgradation))).
		Msg("Fetched homestay data")
	return payload, nil
}

// Decode parses and validates an upstream body. The payload is trusted only
// when response_code is "00" and rows carries at least two record lists.
func Decode(body []byte) (*homestay.Payload, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		ire := errors.NewInvalidResponseError("body is not a JSON object", "", body)
		ire.Err = err
		return nil, ire
	}

	code := responseCode(envelope["response_code"])
	if code != constants.SuccessResponseCode {
		return nil, errors.NewInvalidResponseError("failed to fetch valid data", code, body)
	}

	var rows [][]homestay.Record
	if raw, ok := envelope["rows"]; ok {
		if err := json.Unmarshal(raw, &rows); err != nil {
			ire := errors.NewInvalidResponseError("rows is not a list of record lists", code, body)
			ire.Err = err
			return nil, ire
		}
	}
	if len(rows) < constants.MinRowSets {
		return nil, errors.NewInvalidResponseError(
			fmt.Sprintf("insufficient data rows: got %d, want at least %d", len(rows), constants.MinRowSets),
			code, body)
	}

	return &homestay.Payload{
		ResponseCode: code,
		Rows:         rows,
		Raw:          body,
	}, nil
}

// responseCode renders the response_code field as text whatever its JSON type.
func responseCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
