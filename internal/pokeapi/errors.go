package pokeapi

import "fmt"

// HTTPError represents a non-200 response from the metadata API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("pokeapi: HTTP %d: %s", e.StatusCode, body)
}

// IsNotFound returns true for an unknown id (404).
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsRetryable returns true for rate limits (429) and server errors (5xx).
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// MalformedError reports a response that is missing a required field or
// does not decode. No partial record is ever returned alongside it.
type MalformedError struct {
	ID    int
	Field string
	Err   error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pokeapi: malformed response for %d: %s: %v", e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("pokeapi: malformed response for %d: missing %s", e.ID, e.Field)
}

func (e *MalformedError) Unwrap() error { return e.Err }
