package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrInvalidCode          = errors.New("invalid verification code")
	ErrAlreadyProposedByYou = errors.New("you cannot accept your own proposal")
	ErrPaymentRequired      = errors.New("payment required before further sessions")
	ErrNoProposal           = errors.New("no proposed date to accept")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotParticipant       = errors.New("actor is not a party to this record")
	ErrRoleNotPermitted     = errors.New("operation not permitted for this role")
	ErrInvalidRole          = errors.New("invalid role")
	ErrOTPNotIssued         = errors.New("no verification code has been issued")
	ErrOTPExpired           = errors.New("verification code expired")
	ErrOTPLocked            = errors.New("too many attempts, request a new code")
	ErrReasonRequired       = errors.New("a reason is required")
	ErrInvalidCoordinates   = errors.New("coordinates out of range")
	ErrNoPaymentDue         = errors.New("no payment is due")
	ErrInvalidToken         = errors.New("invalid attendance token")
	ErrInvalidDate          = errors.New("a proposed date is required")
)

// TransitionError reports an operation attempted from a status that does
// not allow it.
type TransitionError struct {
	Entity string
	From   string
	Op     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s %s in status %s", e.Op, e.Entity, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// StoreError wraps a failure of the underlying store. The core never retries
// these.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
