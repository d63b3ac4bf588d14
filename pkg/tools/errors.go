package tools

import (
	"errors"
	"fmt"
)

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrToolDisabled = errors.New("tool is disabled")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrToolTimeout  = errors.New("tool execution timed out")
)

// RegistryError wraps registration and lookup failures with the tool name.
type RegistryError struct {
	Tool    string
	Message string
	Err     error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %q: %s: %v", e.Tool, e.Message, e.Err)
	}
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Message)
}

func (e *RegistryError) Unwrap() error { return e.Err }
