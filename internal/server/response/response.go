// Package response provides the standard JSON envelope for the homestay API.
// Every API response carries a data field on success and an error field on
// failure.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/homestay/pkg/errors"
)

// Response represents the standardized API response structure.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error represents an API error with code, message, and optional details.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail creates an error response.
func Fail(code, message string, details any) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; encoding errors cannot be reported.
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message string, details any) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter, message string, details any) {
	JSON(w, http.StatusUnauthorized, Fail("UNAUTHORIZED", message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message string, details any) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// RateLimited writes a 429 error response.
func RateLimited(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, Fail("RATE_LIMITED", "Rate limit exceeded", message))
}

// InternalError writes a 500 error response without exposing the cause.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail("SERVICE_UNAVAILABLE", "Service unavailable", message))
}

// upstreamRetryAfter is the Retry-After sent when the upstream throttles us.
const upstreamRetryAfter = "60"

// Status returns the HTTP status ErrorFromType would use for err.
func Status(err error) int {
	var (
		fetchErr   *errors.FetchError
		invalidErr *errors.InvalidResponseError
		recordErr  *errors.MalformedRecordError
		compErr    *errors.ComputationError
		validErr   *errors.ValidationError
	)
	switch {
	case errors.IsRateLimited(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &fetchErr), errors.As(err, &invalidErr):
		return http.StatusBadGateway
	case errors.As(err, &recordErr), errors.As(err, &compErr):
		return http.StatusInternalServerError
	case errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFromType maps typed errors to HTTP responses. Upstream failures are
// 502, or 503 with Retry-After when the upstream rate limits; an invalid
// upstream payload carries the raw body in details.
func ErrorFromType(w http.ResponseWriter, err error) {
	var (
		fetchErr   *errors.FetchError
		invalidErr *errors.InvalidResponseError
		recordErr  *errors.MalformedRecordError
		compErr    *errors.ComputationError
		validErr   *errors.ValidationError
		notFound   *errors.NotFoundError
	)
	switch {
	case errors.As(err, &invalidErr):
		var raw any = string(invalidErr.Raw)
		if json.Valid(invalidErr.Raw) {
			raw = json.RawMessage(invalidErr.Raw)
		}
		JSON(w, http.StatusBadGateway, Fail("INVALID_UPSTREAM_RESPONSE", invalidErr.Error(), raw))
	case errors.As(err, &fetchErr) && errors.IsRateLimited(err):
		w.Header().Set("Retry-After", upstreamRetryAfter)
		JSON(w, http.StatusServiceUnavailable, Fail("UPSTREAM_RATE_LIMITED", "Upstream API is rate limiting requests", fetchErr.Error()))
	case errors.As(err, &fetchErr):
		code := "UPSTREAM_FETCH_FAILED"
		if errors.IsTimeout(err) {
			code = "UPSTREAM_TIMEOUT"
		}
		JSON(w, http.StatusBadGateway, Fail(code, "Failed to fetch homestay data", fetchErr.Error()))
	case errors.As(err, &recordErr):
		JSON(w, http.StatusInternalServerError, Fail("MALFORMED_RECORD", "Upstream data could not be grouped", recordErr.Error()))
	case errors.As(err, &compErr):
		JSON(w, http.StatusInternalServerError, Fail("COMPUTATION_ERROR", "Report could not be computed", compErr.Error()))
	case errors.As(err, &validErr):
		BadRequest(w, validErr.Error(), nil)
	case errors.As(err, &notFound):
		NotFound(w, notFound.Error(), nil)
	default:
		InternalError(w, err)
	}
}
