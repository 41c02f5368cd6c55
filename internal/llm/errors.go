package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// TransportError reports a model call that did not produce a usable
// completion. Status is the upstream HTTP status, or 0 when no response
// was received.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("API request failed: %d %s", e.Status, e.Message)
	}
	return "API request failed: " + e.Message
}

func (e *TransportError) Unwrap() error { return e.Err }

// asTransportError maps go-openai and network failures to *TransportError.
func asTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := "unexpected response"
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &TransportError{Status: reqErr.HTTPStatusCode, Message: msg, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Message: "request timed out", Err: err}
	}
	return &TransportError{Message: err.Error(), Err: err}
}
