// Package apiclient is a small HTTP client for the weather API, used by the
// seeder and by anything else that drives the API from Go.
package apiclient

import "fmt"

// APIError is a non-2xx response. Message is the server's "message" field
// when the body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("weather api returned status %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
}
