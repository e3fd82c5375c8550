package domain

import (
	"crypto/subtle"
	"time"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusAccepted  BookingStatus = "ACCEPTED"
	BookingStatusVerified  BookingStatus = "VERIFIED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusMissed    BookingStatus = "MISSED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// validTransitions is the closed state machine for booking statuses.
// Cancel is legal from everything except VERIFIED, COMPLETED, and an
// already-cancelled booking; MISSED is an operator-driven transition,
// never set automatically.
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusAccepted, BookingStatusCancelled},
	BookingStatusAccepted:  {BookingStatusVerified, BookingStatusCancelled, BookingStatusMissed},
	BookingStatusVerified:  {BookingStatusCompleted},
	BookingStatusCancelled: {},
	BookingStatusMissed:    {BookingStatusCancelled},
	BookingStatusCompleted: {},
}

// IsValid returns true if the status is a recognized booking status
func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo returns true if the state machine allows moving from s to target
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

func (s BookingStatus) String() string {
	return string(s)
}

// OTPFailureReason classifies why an OTP submission was rejected
type OTPFailureReason string

const (
	OTPFailureNotIssued   OTPFailureReason = "not_issued"
	OTPFailureExpired     OTPFailureReason = "expired"
	OTPFailureAlreadyUsed OTPFailureReason = "already_used"
	OTPFailureMismatch    OTPFailureReason = "mismatch"
)

// BookingOTP is the one-time code gating session start. It is absent until
// issued and single-use: IsUsed is never unset once flipped.
type BookingOTP struct {
	Code       string     `json:"-" gorm:"column:code"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"column:expires_at"`
	IsUsed     bool       `json:"is_used" gorm:"column:is_used"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" gorm:"column:verified_at"`
}

// IsValidAt reports whether the OTP can still be consumed at the given time
func (o *BookingOTP) IsValidAt(now time.Time) bool {
	return o != nil && !o.IsUsed && now.Before(o.ExpiresAt)
}

// Booking represents one charging-session reservation on a host's charger
type Booking struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	Code         string        `json:"code" gorm:"uniqueIndex"`
	CustomerID   string        `json:"customer_id" gorm:"index"`
	CustomerName string        `json:"customer_name"`
	VehicleModel string        `json:"vehicle_model"`
	ChargerID    string        `json:"charger_id" gorm:"index"`
	ChargerName  string        `json:"charger_name"` // denormalized for display without a join
	Status       BookingStatus `json:"status" gorm:"index"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	Hours        float64       `json:"hours"`
	Amount       float64       `json:"amount"`

	OTP *BookingOTP `json:"otp,omitempty" gorm:"embedded;embeddedPrefix:otp_"`

	TransactionID    *string    `json:"transaction_id,omitempty" gorm:"index"`
	SessionStartedAt *time.Time `json:"session_started_at,omitempty"`
	SessionEndedAt   *time.Time `json:"session_ended_at,omitempty"`
	IsSessionActive  bool       `json:"is_session_active"`

	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PeekOTP checks a submitted code against the stored OTP without consuming it.
// Returns a typed *OTPInvalidError carrying the failure sub-reason, or nil when
// the code is accepted. The comparison is constant-time.
func (b *Booking) PeekOTP(code string, now time.Time) error {
	switch {
	case b.OTP == nil:
		return NewOTPInvalidError(OTPFailureNotIssued)
	case b.OTP.IsUsed:
		return NewOTPInvalidError(OTPFailureAlreadyUsed)
	case !now.Before(b.OTP.ExpiresAt):
		return NewOTPInvalidError(OTPFailureExpired)
	case subtle.ConstantTimeCompare([]byte(b.OTP.Code), []byte(code)) != 1:
		return NewOTPInvalidError(OTPFailureMismatch)
	}
	return nil
}

// ConsumeOTP validates the submitted code and, on success, marks the OTP used
// and stamps VerifiedAt. Consumption is irreversible; callers must persist the
// mutation inside the same unit of work as the rest of session verification.
func (b *Booking) ConsumeOTP(code string, now time.Time) error {
	if err := b.PeekOTP(code, now); err != nil {
		return err
	}
	b.OTP.IsUsed = true
	verifiedAt := now
	b.OTP.VerifiedAt = &verifiedAt
	return nil
}

// CanBeCancelled returns true if the booking may still be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status.CanTransitionTo(BookingStatusCancelled)
}
