package domain

import (
	"fmt"
)

// ValidationError reports malformed or missing input. The caller must correct
// the request; it is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a referenced entity does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InvalidStateError reports that an operation is illegal from the booking's
// current status. The message always names the current status.
type InvalidStateError struct {
	Operation string
	Current   BookingStatus
}

func NewInvalidStateError(operation string, current BookingStatus) *InvalidStateError {
	return &InvalidStateError{Operation: operation, Current: current}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s booking in status %s", e.Operation, e.Current)
}

// ChargerUnavailableError reports that the charger is OFFLINE or MAINTENANCE
// at a point where it must be usable
type ChargerUnavailableError struct {
	ChargerID string
	Status    ChargerStatus
}

func NewChargerUnavailableError(chargerID string, status ChargerStatus) *ChargerUnavailableError {
	return &ChargerUnavailableError{ChargerID: chargerID, Status: status}
}

func (e *ChargerUnavailableError) Error() string {
	return fmt.Sprintf("charger %s is not available for sessions (status %s)", e.ChargerID, e.Status)
}

// OTPInvalidError reports a rejected OTP submission with its sub-reason
type OTPInvalidError struct {
	Reason OTPFailureReason
}

func NewOTPInvalidError(reason OTPFailureReason) *OTPInvalidError {
	return &OTPInvalidError{Reason: reason}
}

func (e *OTPInvalidError) Error() string {
	switch e.Reason {
	case OTPFailureNotIssued:
		return "otp has not been issued for this booking"
	case OTPFailureExpired:
		return "otp has expired, request a new one"
	case OTPFailureAlreadyUsed:
		return "otp has already been used"
	case OTPFailureMismatch:
		return "otp code does not match"
	}
	return "otp invalid"
}

// AlreadyVerifiedError guards the verification orchestrator against a booking
// that is already VERIFIED or COMPLETED
type AlreadyVerifiedError struct {
	BookingID string
	Status    BookingStatus
}

func NewAlreadyVerifiedError(bookingID string, status BookingStatus) *AlreadyVerifiedError {
	return &AlreadyVerifiedError{BookingID: bookingID, Status: status}
}

func (e *AlreadyVerifiedError) Error() string {
	return fmt.Sprintf("booking %s is already verified (status %s)", e.BookingID, e.Status)
}

// CancelledBookingError guards the verification orchestrator against a
// booking that was cancelled before the session could start
type CancelledBookingError struct {
	BookingID string
}

func NewCancelledBookingError(bookingID string) *CancelledBookingError {
	return &CancelledBookingError{BookingID: bookingID}
}

func (e *CancelledBookingError) Error() string {
	return fmt.Sprintf("booking %s has been cancelled", e.BookingID)
}

// ConflictError reports a concurrent-write conflict or an exhausted
// uniqueness-retry loop
type ConflictError struct {
	Reason string
}

func NewConflictError(reason string) *ConflictError {
	return &ConflictError{Reason: reason}
}

func (e *ConflictError) Error() string {
	return e.Reason
}
