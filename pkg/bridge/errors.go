package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamUnavailable = errors.New("bridge: upstream unavailable")
	ErrNotFound            = errors.New("bridge: order not found")
	ErrValidation          = errors.New("bridge: invalid input")
)

type OpError struct {
	Op      string
	OrderID string
	Err     error
}

func (e *OpError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("bridge.%s [%s]: %v", e.Op, e.OrderID, e.Err)
	}
	return fmt.Sprintf("bridge.%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
