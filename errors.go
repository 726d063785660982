package publicchat

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for lookups of unknown (or trimmed) messages.
var ErrNotFound = errors.New("message not found")

// ValidationError reports a rejected inbound value. The frame that carried it
// is dropped without any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
