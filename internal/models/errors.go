package models

import (
	"fmt"
	"math"
)

// ValidationError represents a request or record validation failure.
// Validation errors are permanent: retrying the same input fails the same way.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// IsFinite reports whether v is neither NaN nor an infinity
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
