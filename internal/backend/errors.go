package backend

import "fmt"

// TransportError is a network level failure reaching the backend.
// Its message is the underlying error message.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError means the backend answered with a non-2xx status.
type BackendError struct {
	API        string
	StatusCode int
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s API failed: %d", e.API, e.StatusCode)
}

// MalformedResponseError means a 2xx body was not valid JSON.
type MalformedResponseError struct {
	API string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s API returned malformed JSON: %v", e.API, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
