// Package types defines the JSON envelopes shared by the API and its client.
package types

// SuccessEnvelope wraps every 2xx body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of every error response. RequestID echoes the
// X-Request-Id of the failed request so a report can be matched to logs.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ReasonInProgress is the details.reason of the 409 returned while the first
// request with the same idempotency key is still running. Clients may retry
// it with the same key.
const ReasonInProgress = "in_progress"
