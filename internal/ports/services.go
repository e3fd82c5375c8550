package ports

import (
	"context"
	"time"

	"github.com/volthost/volthost-api/internal/domain"
)

// CreateBookingInput carries everything needed to open a booking in PENDING
type CreateBookingInput struct {
	CustomerID   string
	CustomerName string
	VehicleModel string
	ChargerID    string
	ScheduledAt  time.Time
	Hours        float64
	Amount       float64
}

type BookingService interface {
	Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	Accept(ctx context.Context, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, id string) (*domain.Booking, error)
	// MarkMissed is an operator-only transition; nothing in the system sets
	// MISSED automatically.
	MarkMissed(ctx context.Context, id string) (*domain.Booking, error)
	Complete(ctx context.Context, id string) (*domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
}

// OTPIssue is what generating an OTP hands back to the caller
type OTPIssue struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifiedSession is the result of a successful session verification
type VerifiedSession struct {
	Booking     *domain.Booking     `json:"booking"`
	Transaction *domain.Transaction `json:"transaction"`
	Charger     *domain.Charger     `json:"charger"`
}

type VerificationService interface {
	// GenerateOTP issues a one-time code for an ACCEPTED booking. When
	// regenerate is false and a still-valid OTP exists it is returned
	// unchanged; regenerate=true always mints a fresh code.
	GenerateOTP(ctx context.Context, bookingID string, regenerate bool) (*OTPIssue, error)
	// VerifySession consumes the OTP and atomically commits the booking
	// status change, the ledger entry, and the charger counters.
	VerifySession(ctx context.Context, bookingID, code string) (*VerifiedSession, error)
}

type ChargerService interface {
	Get(ctx context.Context, id string) (*domain.Charger, error)
	List(ctx context.Context, hostID string, limit, offset int) ([]domain.Charger, error)
	IsAvailableForSession(ctx context.Context, id string) (bool, error)
}

type LedgerService interface {
	Append(ctx context.Context, amount float64, source domain.TransactionSource, description string) (*domain.Transaction, error)
	Recent(ctx context.Context, limit, offset int) ([]domain.Transaction, error)
	Summary(ctx context.Context, source domain.TransactionSource) (*domain.LedgerSummary, error)
}

// TokenClaims is the host identity extracted from a verified token
type TokenClaims struct {
	HostID string
	Role   string
}

type TokenService interface {
	Generate(hostID, role string) (string, error)
	Validate(token string) (*TokenClaims, error)
}

// OTPNotifier delivers an issued OTP to the customer. The production build
// only logs the code, real SMS/email delivery is out of scope.
type OTPNotifier interface {
	NotifyOTP(ctx context.Context, booking *domain.Booking, code string, expiresAt time.Time) error
}
