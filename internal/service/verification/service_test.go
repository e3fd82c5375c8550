package verification

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/mocks"
	"github.com/volthost/volthost-api/internal/ports"
)

var otpCodePattern = regexp.MustCompile(`^\d{6}$`)

// fixture wires the service against stateful in-memory mocks so a test can
// drive a full verification flow and inspect every side effect afterwards.
type fixture struct {
	service  *Service
	booking  *domain.Booking
	charger  *domain.Charger
	ledger   []*domain.Transaction
	bookings *mocks.MockBookingRepository
	chargers *mocks.MockChargerRepository
	txs      *mocks.MockTransactionRepository
	uow      *mocks.MockUnitOfWork
	mq       *mocks.MockMessageQueue
	notifier *mocks.MockOTPNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		booking: &domain.Booking{
			ID:           "booking-1",
			Code:         "VH-K4N2PQ",
			CustomerID:   "customer-1",
			CustomerName: "Ana Souza",
			VehicleModel: "BYD Dolphin",
			ChargerID:    "charger-1",
			ChargerName:  "Garage Wallbox",
			Status:       domain.BookingStatusAccepted,
			Amount:       42.50,
		},
		charger: &domain.Charger{
			ID:            "charger-1",
			HostID:        "host-1",
			Name:          "Garage Wallbox",
			Status:        domain.ChargerStatusOnline,
			TotalSessions: 3,
			Utilization:   15,
		},
	}

	f.bookings = &mocks.MockBookingRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Booking, error) {
			if id == f.booking.ID {
				return f.booking, nil
			}
			return nil, nil
		},
	}
	f.chargers = &mocks.MockChargerRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Charger, error) {
			if id == f.charger.ID {
				return f.charger, nil
			}
			return nil, nil
		},
	}
	f.txs = &mocks.MockTransactionRepository{
		CreateFunc: func(ctx context.Context, tx *domain.Transaction) error {
			f.ledger = append(f.ledger, tx)
			return nil
		},
	}
	f.uow = &mocks.MockUnitOfWork{
		Repos: ports.Repositories{
			Bookings:     f.bookings,
			Chargers:     f.chargers,
			Transactions: f.txs,
		},
	}
	f.mq = mocks.NewMockMessageQueue()
	f.notifier = &mocks.MockOTPNotifier{}

	f.service = NewService(f.uow, f.notifier, f.mq, zap.NewNop())
	return f
}

// issuedAt pins the clock and hands the booking a live OTP as if GenerateOTP
// had run at that instant.
func (f *fixture) issueOTP(code string, issuedAt time.Time) {
	f.booking.OTP = &domain.BookingOTP{
		Code:      code,
		ExpiresAt: issuedAt.Add(otpTTL),
	}
	f.service.now = func() time.Time { return issuedAt }
}

func TestGenerateOTP(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return issuedAt }

	issue, err := f.service.GenerateOTP(context.Background(), "booking-1", false)
	if err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}

	if !otpCodePattern.MatchString(issue.Code) {
		t.Errorf("Expected a 6-digit code, got %q", issue.Code)
	}
	if !issue.ExpiresAt.Equal(issuedAt.Add(15 * time.Minute)) {
		t.Errorf("Expected expiry 15m after issuance, got %v", issue.ExpiresAt)
	}
	if f.booking.OTP == nil || f.booking.OTP.Code != issue.Code {
		t.Error("Expected the code to be stored on the booking")
	}
	if f.booking.OTP.IsUsed {
		t.Error("A fresh OTP must not be marked used")
	}

	if len(f.notifier.Notified) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(f.notifier.Notified))
	}
	if f.notifier.Notified[0].Code != issue.Code {
		t.Error("Expected the issued code to be delivered to the customer")
	}
}

func TestGenerateOTP_IdempotentWhileValid(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	// Ten minutes later the first code is still live; asking again without
	// regenerate returns it unchanged.
	f.service.now = func() time.Time { return issuedAt.Add(10 * time.Minute) }

	updateCalled := false
	f.bookings.UpdateFunc = func(ctx context.Context, b *domain.Booking) error {
		updateCalled = true
		return nil
	}

	issue, err := f.service.GenerateOTP(context.Background(), "booking-1", false)
	if err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}

	if issue.Code != "482913" {
		t.Errorf("Expected the existing code back, got %q", issue.Code)
	}
	if updateCalled {
		t.Error("Returning a still-valid OTP must not write the booking")
	}
}

func TestGenerateOTP_Regenerate(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	later := issuedAt.Add(5 * time.Minute)
	f.service.now = func() time.Time { return later }

	issue, err := f.service.GenerateOTP(context.Background(), "booking-1", true)
	if err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}

	if !issue.ExpiresAt.Equal(later.Add(15 * time.Minute)) {
		t.Errorf("Expected a fresh expiry window, got %v", issue.ExpiresAt)
	}
	if f.booking.OTP.Code != issue.Code {
		t.Error("Expected the new code to replace the old one")
	}
}

func TestGenerateOTP_ReplacesExpiredCode(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	// Past expiry even regenerate=false mints a new code.
	later := issuedAt.Add(20 * time.Minute)
	f.service.now = func() time.Time { return later }

	issue, err := f.service.GenerateOTP(context.Background(), "booking-1", false)
	if err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	if !issue.ExpiresAt.Equal(later.Add(15 * time.Minute)) {
		t.Errorf("Expected a fresh expiry window, got %v", issue.ExpiresAt)
	}
}

func TestGenerateOTP_BookingNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GenerateOTP(context.Background(), "missing", false)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestGenerateOTP_RequiresAcceptedBooking(t *testing.T) {
	f := newFixture(t)
	f.booking.Status = domain.BookingStatusPending

	_, err := f.service.GenerateOTP(context.Background(), "booking-1", false)
	var stateErr *domain.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	if stateErr.Current != domain.BookingStatusPending {
		t.Errorf("Expected error to carry status PENDING, got %s", stateErr.Current)
	}
}

func TestGenerateOTP_ChargerInMaintenance(t *testing.T) {
	f := newFixture(t)
	f.charger.Status = domain.ChargerStatusMaintenance

	_, err := f.service.GenerateOTP(context.Background(), "booking-1", false)
	var unavailable *domain.ChargerUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected ChargerUnavailableError, got %v", err)
	}
	if f.booking.OTP != nil {
		t.Error("No OTP may be issued against an unavailable charger")
	}
}

func TestVerifySession(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	verifyAt := issuedAt.Add(5 * time.Minute)
	f.service.now = func() time.Time { return verifyAt }

	result, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}

	if result.Booking.Status != domain.BookingStatusVerified {
		t.Errorf("Expected status VERIFIED, got %s", result.Booking.Status)
	}
	if !result.Booking.IsSessionActive {
		t.Error("Expected the session to be active")
	}
	if result.Booking.SessionStartedAt == nil || !result.Booking.SessionStartedAt.Equal(verifyAt) {
		t.Errorf("Expected SessionStartedAt %v, got %v", verifyAt, result.Booking.SessionStartedAt)
	}
	if !result.Booking.OTP.IsUsed {
		t.Error("Expected the OTP to be consumed")
	}

	if len(f.ledger) != 1 {
		t.Fatalf("Expected exactly 1 ledger entry, got %d", len(f.ledger))
	}
	entry := f.ledger[0]
	if entry.Amount != 42.50 {
		t.Errorf("Expected ledger amount 42.50, got %f", entry.Amount)
	}
	if entry.Source != domain.TransactionSourceCharging {
		t.Errorf("Expected source CHARGING, got %s", entry.Source)
	}
	if result.Booking.TransactionID == nil || *result.Booking.TransactionID != entry.ID {
		t.Error("Expected the booking to link the ledger entry")
	}

	if f.charger.TotalSessions != 4 {
		t.Errorf("Expected 4 total sessions, got %d", f.charger.TotalSessions)
	}
	if f.charger.Utilization != 20 {
		t.Errorf("Expected utilization 20, got %f", f.charger.Utilization)
	}

	if len(f.mq.GetPublishedMessages("booking.verified")) != 1 {
		t.Error("Expected a booking.verified event after commit")
	}
}

func TestVerifySession_ExpiredOTP(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	// Sixteen minutes later the correct code no longer works.
	f.service.now = func() time.Time { return issuedAt.Add(16 * time.Minute) }

	_, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	var otpErr *domain.OTPInvalidError
	if !errors.As(err, &otpErr) {
		t.Fatalf("Expected OTPInvalidError, got %v", err)
	}
	if otpErr.Reason != domain.OTPFailureExpired {
		t.Errorf("Expected reason %s, got %s", domain.OTPFailureExpired, otpErr.Reason)
	}

	if f.booking.Status != domain.BookingStatusAccepted {
		t.Errorf("Booking must stay ACCEPTED, got %s", f.booking.Status)
	}
	if len(f.ledger) != 0 {
		t.Error("No ledger entry may exist after a failed verification")
	}
}

func TestVerifySession_WrongCode(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	_, err := f.service.VerifySession(context.Background(), "booking-1", "111111")
	var otpErr *domain.OTPInvalidError
	if !errors.As(err, &otpErr) {
		t.Fatalf("Expected OTPInvalidError, got %v", err)
	}
	if otpErr.Reason != domain.OTPFailureMismatch {
		t.Errorf("Expected reason %s, got %s", domain.OTPFailureMismatch, otpErr.Reason)
	}
	if f.booking.OTP.IsUsed {
		t.Error("A wrong code must not consume the OTP")
	}

	// The stored code still works afterwards.
	result, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	if err != nil {
		t.Fatalf("VerifySession with correct code failed: %v", err)
	}
	if result.Booking.Status != domain.BookingStatusVerified {
		t.Errorf("Expected status VERIFIED, got %s", result.Booking.Status)
	}
}

func TestVerifySession_AlreadyVerified(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	if _, err := f.service.VerifySession(context.Background(), "booking-1", "482913"); err != nil {
		t.Fatalf("First VerifySession failed: %v", err)
	}

	// Stand-in for two racing verifications: FindByIDForUpdate serializes
	// them on the booking row lock, so the loser runs exactly this path —
	// its locked read observes VERIFIED and the status guard rejects it
	// before the OTP is even looked at.
	_, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	var already *domain.AlreadyVerifiedError
	if !errors.As(err, &already) {
		t.Fatalf("Expected AlreadyVerifiedError, got %v", err)
	}

	if len(f.ledger) != 1 {
		t.Errorf("Expected exactly 1 ledger entry after a double submit, got %d", len(f.ledger))
	}
	if f.charger.TotalSessions != 4 {
		t.Errorf("Expected the session counter bumped once, got %d", f.charger.TotalSessions)
	}
}

func TestVerifySession_RaceLoserGetsAlreadyVerified(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	// Simulate the losing side of two concurrent verifications. The winner
	// holds the row lock, commits VERIFIED, and releases; the loser's locked
	// read then resolves against the committed row.
	winnerCommitted := false
	f.bookings.FindByIDForUpdateFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		if !winnerCommitted {
			winnerCommitted = true
			f.booking.Status = domain.BookingStatusVerified
			f.booking.OTP.IsUsed = true
			txID := "tx-winner"
			f.booking.TransactionID = &txID
			f.ledger = append(f.ledger, &domain.Transaction{ID: txID, Amount: f.booking.Amount})
			f.charger.TotalSessions++
		}
		return f.booking, nil
	}

	_, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	var already *domain.AlreadyVerifiedError
	if !errors.As(err, &already) {
		t.Fatalf("Expected AlreadyVerifiedError, got %v", err)
	}

	if len(f.ledger) != 1 {
		t.Errorf("Expected exactly 1 ledger entry to survive the race, got %d", len(f.ledger))
	}
	if f.charger.TotalSessions != 4 {
		t.Errorf("Expected the session counter bumped once, got %d", f.charger.TotalSessions)
	}
	if len(f.mq.GetPublishedMessages("booking.verified")) != 0 {
		t.Error("The losing attempt must not publish an event")
	}
}

func TestVerifySession_CancelledBooking(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)
	f.booking.Status = domain.BookingStatusCancelled

	_, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	var cancelled *domain.CancelledBookingError
	if !errors.As(err, &cancelled) {
		t.Fatalf("Expected CancelledBookingError, got %v", err)
	}
	if len(f.ledger) != 0 {
		t.Error("No ledger entry may exist for a cancelled booking")
	}
}

func TestVerifySession_ChargerInMaintenance(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)
	f.charger.Status = domain.ChargerStatusMaintenance

	_, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	var unavailable *domain.ChargerUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected ChargerUnavailableError, got %v", err)
	}
	if f.booking.Status != domain.BookingStatusAccepted {
		t.Errorf("Booking must stay ACCEPTED, got %s", f.booking.Status)
	}
	if len(f.ledger) != 0 {
		t.Error("No ledger entry may exist when the charger is unavailable")
	}
}

func TestVerifySession_LedgerWriteFailureAborts(t *testing.T) {
	f := newFixture(t)
	issuedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	f.issueOTP("482913", issuedAt)

	f.txs.CreateFunc = func(ctx context.Context, tx *domain.Transaction) error {
		return errors.New("connection reset")
	}

	_, err := f.service.VerifySession(context.Background(), "booking-1", "482913")
	if err == nil {
		t.Fatal("Expected VerifySession to fail when the ledger write fails")
	}

	if f.charger.TotalSessions != 3 {
		t.Errorf("Charger counters must not move on a failed unit, got %d", f.charger.TotalSessions)
	}
	if len(f.mq.GetPublishedMessages("booking.verified")) != 0 {
		t.Error("No event may be published for a unit of work that failed")
	}
}

func TestVerifySession_BookingNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.VerifySession(context.Background(), "missing", "482913")
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}
