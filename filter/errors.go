package filter

import (
	"fmt"
)

// Error types for filter operations
type (
	// CompilationError indicates a filter expression could not be compiled
	CompilationError struct {
		Expression string
		Reason     string
		Err        error
	}

	// PayloadError indicates a response payload cannot be filtered
	PayloadError struct {
		Index  int // -1 for the payload as a whole
		Reason string
	}

	// UnknownPresetError indicates a preset name that was never registered
	UnknownPresetError struct {
		Name string
	}
)

func (e *CompilationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compilation error in '%s': %s: %v", e.Expression, e.Reason, e.Err)
	}
	return fmt.Sprintf("compilation error in '%s': %s", e.Expression, e.Reason)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

func (e *PayloadError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("payload element %d: %s", e.Index, e.Reason)
	}
	return "payload: " + e.Reason
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("filter '%s' not found", e.Name)
}
