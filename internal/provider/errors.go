package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind indicates the configured backend kind is not supported.
// Configuration errors are never retried; they cannot self-resolve.
var ErrUnknownKind = errors.New("unknown provider kind")

// ConnectivityError means the local backend could not be reached at all.
type ConnectivityError struct {
	BaseURL string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot connect to Ollama at %s: %v. Is Ollama running? Start it with: ollama serve",
		e.BaseURL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// InvalidResponseError means the local backend answered, but with a
// payload that is not the expected JSON. Distinct from ConnectivityError
// so operators can tell "nothing is listening" from "something else is
// listening there".
type InvalidResponseError struct {
	BaseURL string
	Err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response from Ollama at %s: %v", e.BaseURL, e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// ModelNotFoundError means the backend is healthy but does not serve the
// configured model.
type ModelNotFoundError struct {
	Model     string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	available := "none available"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("model %q not found in Ollama. Available models: %s. Run: ollama pull %s",
		e.Model, available, e.Model)
}
