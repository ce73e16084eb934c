package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a non-admin attempts an admin-only operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is returned for malformed command arguments or action payloads.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyExists is returned when adding an admin who is already registered.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDeliveryFailure is matched by every *DeliveryError.
	ErrDeliveryFailure = errors.New("delivery failure")
	// ErrNoPendingReply is returned when an admin sends text with nothing pending.
	ErrNoPendingReply = errors.New("no pending reply")
)

// DeliveryError records a failed send to a single recipient.
type DeliveryError struct {
	Recipient int64
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailure
}
