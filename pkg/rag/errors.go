package rag

import "fmt"

// SearchError wraps failures in the retrieval path.
type SearchError struct {
	Operation string
	Message   string
	Err       error
}

func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rag %s: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("rag %s: %s", e.Operation, e.Message)
}

func (e *SearchError) Unwrap() error { return e.Err }

func newSearchError(operation, message string, err error) *SearchError {
	return &SearchError{Operation: operation, Message: message, Err: err}
}
