package session

import "fmt"

// ConfigError reports a session parameter that cannot be used.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid session config: %s %q %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid session config: %s %s", e.Field, e.Reason)
}
