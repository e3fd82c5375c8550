package booking

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/adapter/queue"
	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/observability/telemetry"
	"github.com/volthost/volthost-api/internal/ports"
)

const (
	minBookingHours = 0.5

	// codeAlphabet excludes characters that read ambiguously (0/O, 1/I/L)
	codeAlphabet     = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength       = 6
	codePrefix       = "VH-"
	maxCodeAttempts  = 5
	defaultListLimit = 50
)

// Service implements BookingService
type Service struct {
	repo        ports.BookingRepository
	chargerRepo ports.ChargerRepository
	mq          queue.MessageQueue
	log         *zap.Logger
	now         func() time.Time
}

// NewService creates a new booking service
func NewService(repo ports.BookingRepository, chargerRepo ports.ChargerRepository, mq queue.MessageQueue, log *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		chargerRepo: chargerRepo,
		mq:          mq,
		log:         log,
		now:         time.Now,
	}
}

// Create opens a new booking in PENDING against an existing charger
func (s *Service) Create(ctx context.Context, input ports.CreateBookingInput) (*domain.Booking, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	charger, err := s.chargerRepo.FindByID(ctx, input.ChargerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find charger: %w", err)
	}
	if charger == nil {
		return nil, domain.NewNotFoundError("charger", input.ChargerID)
	}

	code, err := s.uniqueBookingCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	booking := &domain.Booking{
		ID:           uuid.New().String(),
		Code:         code,
		CustomerID:   input.CustomerID,
		CustomerName: input.CustomerName,
		VehicleModel: input.VehicleModel,
		ChargerID:    charger.ID,
		ChargerName:  charger.Name,
		Status:       domain.BookingStatusPending,
		ScheduledAt:  input.ScheduledAt.UTC(),
		Hours:        input.Hours,
		Amount:       input.Amount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Save(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	telemetry.BookingsCreatedTotal.Inc()
	s.publishEvent("booking.created", booking)

	return booking, nil
}

// Accept moves a PENDING booking to ACCEPTED and stamps acceptedAt
func (s *Service) Accept(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, "accept", domain.BookingStatusAccepted, "booking.accepted")
}

// Cancel moves a booking to CANCELLED; legal from PENDING and ACCEPTED only
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, "cancel", domain.BookingStatusCancelled, "booking.cancelled")
}

// MarkMissed records a no-show. This transition is only ever taken by an
// operator action, there is no timeout that sets MISSED automatically.
func (s *Service) MarkMissed(ctx context.Context, id string) (*domain.Booking, error) {
	return s.transition(ctx, id, "mark missed", domain.BookingStatusMissed, "booking.missed")
}

// Complete ends a verified session and moves the booking to COMPLETED
func (s *Service) Complete(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.transition(ctx, id, "complete", domain.BookingStatusCompleted, "booking.completed")
	if err != nil {
		return nil, err
	}
	telemetry.ActiveChargingSessions.Dec()
	return booking, nil
}

// Get returns a booking by id
func (s *Service) Get(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	if booking == nil {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return booking, nil
}

// List returns a page of bookings, optionally filtered by status
func (s *Service) List(ctx context.Context, filter ports.BookingFilter) ([]domain.Booking, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.repo.List(ctx, filter)
}

// transition performs a guarded status change. The compare-and-swap write in
// the repository protects against a concurrent transition between our read
// and our write; when it loses, the fresh status is reported to the caller.
func (s *Service) transition(ctx context.Context, id, operation string, target domain.BookingStatus, event string) (*domain.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	if booking == nil {
		return nil, domain.NewNotFoundError("booking", id)
	}

	if !booking.Status.CanTransitionTo(target) {
		return nil, domain.NewInvalidStateError(operation, booking.Status)
	}

	now := s.now().UTC()
	applied, err := s.repo.TransitionStatus(ctx, id, booking.Status, target, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	if !applied {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil || current == nil {
			return nil, domain.NewConflictError("booking was modified concurrently")
		}
		return nil, domain.NewInvalidStateError(operation, current.Status)
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}

	s.publishEvent(event, updated)
	return updated, nil
}

// uniqueBookingCode generates a human-readable code, retrying on collision a
// bounded number of times before giving up with a conflict.
func (s *Service) uniqueBookingCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate booking code: %w", err)
		}
		existing, err := s.repo.FindByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check booking code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", domain.NewConflictError("could not generate a unique booking code")
}

func randomCode() (string, error) {
	var b strings.Builder
	b.WriteString(codePrefix)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func (s *Service) publishEvent(subject string, booking *domain.Booking) {
	if s.mq == nil || booking == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"booking_id": booking.ID,
		"code":       booking.Code,
		"charger_id": booking.ChargerID,
		"status":     booking.Status,
		"amount":     booking.Amount,
		"at":         s.now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.mq.Publish(subject, payload); err != nil {
		s.log.Warn("failed to publish booking event",
			zap.String("subject", subject),
			zap.String("booking_id", booking.ID),
			zap.Error(err),
		)
	}
}

func validateCreateInput(input ports.CreateBookingInput) error {
	switch {
	case strings.TrimSpace(input.CustomerID) == "":
		return domain.NewValidationError("customer_id", "required")
	case strings.TrimSpace(input.ChargerID) == "":
		return domain.NewValidationError("charger_id", "required")
	case input.ScheduledAt.IsZero():
		return domain.NewValidationError("scheduled_at", "required")
	case input.Hours < minBookingHours:
		return domain.NewValidationError("hours", fmt.Sprintf("must be at least %.1f", minBookingHours))
	case input.Amount < 0:
		return domain.NewValidationError("amount", "must not be negative")
	}
	return nil
}
