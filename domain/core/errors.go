package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrInvalidBatch         = errors.New("invalid batch")
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Lifecycle errors
	ErrRunComplete   = errors.New("run already complete")
	ErrRunInProgress = errors.New("run already in progress")
	ErrInvalidPhase  = errors.New("operation not allowed in current phase")

	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)
)

// NewInvalidBatchError describes why a batch or trial cap was rejected
func NewInvalidBatchError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidBatch, reason)
}

// NewConfigurationError describes an out-of-range generator or run setting
func NewConfigurationError(field string, value interface{}) error {
	return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfiguration, field, value)
}

// NewPhaseError reports a wizard transition attempted from the wrong phase
func NewPhaseError(op string, phase interface{}) error {
	return fmt.Errorf("%w: cannot %s while %v", ErrInvalidPhase, op, phase)
}

func IsInvalidBatch(err error) bool {
	return errors.Is(err, ErrInvalidBatch)
}

func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
