package verification

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/adapter/queue"
	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/observability/telemetry"
	"github.com/volthost/volthost-api/internal/ports"
)

// otpTTL is fixed at issuance; expiry is evaluated lazily at validation time,
// there is no background sweeper.
const otpTTL = 15 * time.Minute

// Service implements VerificationService. Every read and write of a
// verification attempt happens inside one unit of work so that booking,
// ledger, and charger state can never diverge.
type Service struct {
	uow      ports.UnitOfWork
	notifier ports.OTPNotifier
	mq       queue.MessageQueue
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a new verification service
func NewService(uow ports.UnitOfWork, notifier ports.OTPNotifier, mq queue.MessageQueue, log *zap.Logger) *Service {
	return &Service{
		uow:      uow,
		notifier: notifier,
		mq:       mq,
		log:      log,
		now:      time.Now,
	}
}

// GenerateOTP issues a 6-digit code for an ACCEPTED booking whose charger is
// usable. With regenerate=false a still-valid existing OTP is returned
// unchanged; regenerate=true always mints a fresh one, invalidating the old.
func (s *Service) GenerateOTP(ctx context.Context, bookingID string, regenerate bool) (*ports.OTPIssue, error) {
	var issue *ports.OTPIssue
	var booking *domain.Booking

	err := s.uow.Do(ctx, func(repos ports.Repositories) error {
		b, err := repos.Bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return domain.NewNotFoundError("booking", bookingID)
		}
		if b.Status != domain.BookingStatusAccepted {
			return domain.NewInvalidStateError("issue otp for", b.Status)
		}

		charger, err := repos.Chargers.FindByID(ctx, b.ChargerID)
		if err != nil {
			return fmt.Errorf("failed to load charger: %w", err)
		}
		if charger == nil {
			return domain.NewNotFoundError("charger", b.ChargerID)
		}
		if !charger.IsAvailableForSession() {
			return domain.NewChargerUnavailableError(charger.ID, charger.Status)
		}

		now := s.now().UTC()
		if !regenerate && b.OTP.IsValidAt(now) {
			booking = b
			issue = &ports.OTPIssue{Code: b.OTP.Code, ExpiresAt: b.OTP.ExpiresAt}
			return nil
		}

		code, err := randomOTPCode()
		if err != nil {
			return fmt.Errorf("failed to generate otp: %w", err)
		}
		b.OTP = &domain.BookingOTP{
			Code:      code,
			ExpiresAt: now.Add(otpTTL),
		}
		b.UpdatedAt = now
		if err := repos.Bookings.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to store otp: %w", err)
		}

		booking = b
		issue = &ports.OTPIssue{Code: code, ExpiresAt: b.OTP.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.OTPIssuedTotal.Inc()
	if s.notifier != nil {
		if err := s.notifier.NotifyOTP(ctx, booking, issue.Code, issue.ExpiresAt); err != nil {
			s.log.Warn("failed to deliver otp notification",
				zap.String("booking_id", booking.ID),
				zap.Error(err),
			)
		}
	}

	return issue, nil
}

// VerifySession consumes the submitted OTP and commits the booking status
// change, the ledger entry, and the charger counter bump as one atomic unit.
// The booking and charger rows are locked for the duration of the unit, so of
// two racing attempts the loser re-reads VERIFIED and fails the guard below.
func (s *Service) VerifySession(ctx context.Context, bookingID, code string) (*ports.VerifiedSession, error) {
	var result *ports.VerifiedSession

	err := s.uow.Do(ctx, func(repos ports.Repositories) error {
		b, err := repos.Bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if b == nil {
			return domain.NewNotFoundError("booking", bookingID)
		}

		// Terminal-state guards come before any OTP check so a stale
		// submission gets a precise error instead of an OTP failure.
		switch b.Status {
		case domain.BookingStatusVerified, domain.BookingStatusCompleted:
			return domain.NewAlreadyVerifiedError(b.ID, b.Status)
		case domain.BookingStatusCancelled:
			return domain.NewCancelledBookingError(b.ID)
		}
		if b.Status != domain.BookingStatusAccepted {
			return domain.NewInvalidStateError("verify", b.Status)
		}

		now := s.now().UTC()
		if err := b.ConsumeOTP(code, now); err != nil {
			return err
		}

		charger, err := repos.Chargers.FindByIDForUpdate(ctx, b.ChargerID)
		if err != nil {
			return fmt.Errorf("failed to load charger: %w", err)
		}
		if charger == nil {
			return domain.NewNotFoundError("charger", b.ChargerID)
		}
		if !charger.IsAvailableForSession() {
			return domain.NewChargerUnavailableError(charger.ID, charger.Status)
		}

		tx := &domain.Transaction{
			ID:          uuid.New().String(),
			Amount:      b.Amount,
			Source:      domain.TransactionSourceCharging,
			Description: fmt.Sprintf("Charging session at %s for %s", b.ChargerName, b.VehicleModel),
			CreatedAt:   now,
		}
		if err := repos.Transactions.Create(ctx, tx); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		startedAt := now
		b.Status = domain.BookingStatusVerified
		b.SessionStartedAt = &startedAt
		b.IsSessionActive = true
		b.TransactionID = &tx.ID
		b.UpdatedAt = now
		if err := repos.Bookings.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to persist verified booking: %w", err)
		}

		charger.RecordSessionStart()
		charger.UpdatedAt = now
		if err := repos.Chargers.Update(ctx, charger); err != nil {
			return fmt.Errorf("failed to persist charger counters: %w", err)
		}

		result = &ports.VerifiedSession{Booking: b, Transaction: tx, Charger: charger}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.SessionsVerifiedTotal.Inc()
	telemetry.ActiveChargingSessions.Inc()
	telemetry.LedgerAmountTotal.WithLabelValues(string(domain.TransactionSourceCharging)).Add(result.Transaction.Amount)
	s.publishVerified(result)

	s.log.Info("charging session verified",
		zap.String("booking_id", result.Booking.ID),
		zap.String("charger_id", result.Charger.ID),
		zap.String("transaction_id", result.Transaction.ID),
		zap.Float64("amount", result.Transaction.Amount),
	)

	return result, nil
}

// publishVerified runs after commit; an event must never be emitted for a
// unit of work that might still roll back.
func (s *Service) publishVerified(session *ports.VerifiedSession) {
	if s.mq == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"booking_id":     session.Booking.ID,
		"code":           session.Booking.Code,
		"charger_id":     session.Charger.ID,
		"transaction_id": session.Transaction.ID,
		"status":         session.Booking.Status,
		"amount":         session.Transaction.Amount,
		"at":             session.Booking.SessionStartedAt,
	})
	if err != nil {
		return
	}
	if err := s.mq.Publish("booking.verified", payload); err != nil {
		s.log.Warn("failed to publish verification event",
			zap.String("booking_id", session.Booking.ID),
			zap.Error(err),
		)
	}
}

func randomOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
