package service

import (
	"errors"
	"fmt"
)

// ErrInvalidParams marks parameter failures that must abort an operation
// before anything is persisted. Handlers map it to a 400.
var ErrInvalidParams = errors.New("invalid parameters")

func paramErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
