package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/mocks"
	"github.com/volthost/volthost-api/internal/ports"
)

func newTestService() (*Service, *mocks.MockBookingRepository, *mocks.MockChargerRepository, *mocks.MockMessageQueue) {
	bookings := &mocks.MockBookingRepository{}
	chargers := &mocks.MockChargerRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Charger, error) {
			if id == "charger-1" {
				return &domain.Charger{
					ID:     "charger-1",
					Name:   "Garage Wallbox",
					Status: domain.ChargerStatusOnline,
				}, nil
			}
			return nil, nil
		},
	}
	mq := mocks.NewMockMessageQueue()
	service := NewService(bookings, chargers, mq, zap.NewNop())
	return service, bookings, chargers, mq
}

func validInput() ports.CreateBookingInput {
	return ports.CreateBookingInput{
		CustomerID:   "customer-1",
		CustomerName: "Ana Souza",
		VehicleModel: "BYD Dolphin",
		ChargerID:    "charger-1",
		ScheduledAt:  time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		Hours:        2,
		Amount:       42.50,
	}
}

func TestCreate(t *testing.T) {
	service, bookings, _, mq := newTestService()

	var saved *domain.Booking
	bookings.SaveFunc = func(ctx context.Context, b *domain.Booking) error {
		saved = b
		return nil
	}

	booking, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if booking.Status != domain.BookingStatusPending {
		t.Errorf("Expected status PENDING, got %s", booking.Status)
	}
	if !strings.HasPrefix(booking.Code, "VH-") || len(booking.Code) != len("VH-")+codeLength {
		t.Errorf("Unexpected booking code %q", booking.Code)
	}
	if booking.ChargerName != "Garage Wallbox" {
		t.Errorf("Expected the charger name to be denormalized, got %q", booking.ChargerName)
	}
	if saved == nil {
		t.Fatal("Expected the booking to be saved")
	}

	if len(mq.GetPublishedMessages("booking.created")) != 1 {
		t.Error("Expected a booking.created event")
	}
}

func TestCreate_Validation(t *testing.T) {
	service, _, _, _ := newTestService()

	cases := []struct {
		name   string
		mutate func(*ports.CreateBookingInput)
		field  string
	}{
		{"missing customer", func(i *ports.CreateBookingInput) { i.CustomerID = "" }, "customer_id"},
		{"missing charger", func(i *ports.CreateBookingInput) { i.ChargerID = " " }, "charger_id"},
		{"zero schedule", func(i *ports.CreateBookingInput) { i.ScheduledAt = time.Time{} }, "scheduled_at"},
		{"too short", func(i *ports.CreateBookingInput) { i.Hours = 0.25 }, "hours"},
		{"negative amount", func(i *ports.CreateBookingInput) { i.Amount = -1 }, "amount"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			_, err := service.Create(context.Background(), input)
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if validationErr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, validationErr.Field)
			}
		})
	}
}

func TestCreate_ChargerNotFound(t *testing.T) {
	service, _, _, _ := newTestService()

	input := validInput()
	input.ChargerID = "missing"

	_, err := service.Create(context.Background(), input)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestCreate_CodeCollisionRetries(t *testing.T) {
	service, bookings, _, _ := newTestService()

	// The first two candidate codes collide, the third is free.
	lookups := 0
	bookings.FindByCodeFunc = func(ctx context.Context, code string) (*domain.Booking, error) {
		lookups++
		if lookups <= 2 {
			return &domain.Booking{ID: "other", Code: code}, nil
		}
		return nil, nil
	}

	booking, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if lookups != 3 {
		t.Errorf("Expected 3 code lookups, got %d", lookups)
	}
	if booking.Code == "" {
		t.Error("Expected a booking code")
	}
}

func TestCreate_CodeCollisionExhausted(t *testing.T) {
	service, bookings, _, _ := newTestService()

	bookings.FindByCodeFunc = func(ctx context.Context, code string) (*domain.Booking, error) {
		return &domain.Booking{ID: "other", Code: code}, nil
	}

	_, err := service.Create(context.Background(), validInput())
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
}

func TestAccept(t *testing.T) {
	service, bookings, _, mq := newTestService()

	stored := &domain.Booking{ID: "booking-1", Status: domain.BookingStatusPending}
	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return stored, nil
	}
	bookings.TransitionStatusFunc = func(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error) {
		if from != domain.BookingStatusPending || to != domain.BookingStatusAccepted {
			t.Errorf("Unexpected transition %s -> %s", from, to)
		}
		stored.Status = to
		acceptedAt := at
		stored.AcceptedAt = &acceptedAt
		return true, nil
	}

	booking, err := service.Accept(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if booking.Status != domain.BookingStatusAccepted {
		t.Errorf("Expected status ACCEPTED, got %s", booking.Status)
	}
	if booking.AcceptedAt == nil {
		t.Error("Expected AcceptedAt to be stamped")
	}
	if len(mq.GetPublishedMessages("booking.accepted")) != 1 {
		t.Error("Expected a booking.accepted event")
	}
}

func TestAccept_IllegalFromTerminal(t *testing.T) {
	service, bookings, _, _ := newTestService()

	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return &domain.Booking{ID: id, Status: domain.BookingStatusCancelled}, nil
	}

	_, err := service.Accept(context.Background(), "booking-1")
	var stateErr *domain.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	if stateErr.Current != domain.BookingStatusCancelled {
		t.Errorf("Expected error to carry status CANCELLED, got %s", stateErr.Current)
	}
}

func TestAccept_LosesRaceToCancel(t *testing.T) {
	service, bookings, _, mq := newTestService()

	// The booking reads as PENDING but another request cancels it before the
	// status write lands; the compare-and-swap reports no rows touched.
	status := domain.BookingStatusPending
	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return &domain.Booking{ID: id, Status: status}, nil
	}
	bookings.TransitionStatusFunc = func(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error) {
		status = domain.BookingStatusCancelled
		return false, nil
	}

	_, err := service.Accept(context.Background(), "booking-1")
	var stateErr *domain.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	if stateErr.Current != domain.BookingStatusCancelled {
		t.Errorf("Expected the fresh status CANCELLED in the error, got %s", stateErr.Current)
	}
	if len(mq.GetPublishedMessages("booking.accepted")) != 0 {
		t.Error("A lost transition must not publish an event")
	}
}

func TestCancel_FromAccepted(t *testing.T) {
	service, bookings, _, _ := newTestService()

	stored := &domain.Booking{ID: "booking-1", Status: domain.BookingStatusAccepted}
	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return stored, nil
	}
	bookings.TransitionStatusFunc = func(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error) {
		stored.Status = to
		cancelledAt := at
		stored.CancelledAt = &cancelledAt
		return true, nil
	}

	booking, err := service.Cancel(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if booking.Status != domain.BookingStatusCancelled {
		t.Errorf("Expected status CANCELLED, got %s", booking.Status)
	}
}

func TestCancel_IllegalFromVerified(t *testing.T) {
	service, bookings, _, _ := newTestService()

	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return &domain.Booking{ID: id, Status: domain.BookingStatusVerified}, nil
	}

	_, err := service.Cancel(context.Background(), "booking-1")
	var stateErr *domain.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
}

func TestMarkMissed(t *testing.T) {
	service, bookings, _, mq := newTestService()

	stored := &domain.Booking{ID: "booking-1", Status: domain.BookingStatusAccepted}
	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return stored, nil
	}
	bookings.TransitionStatusFunc = func(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error) {
		stored.Status = to
		return true, nil
	}

	booking, err := service.MarkMissed(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("MarkMissed failed: %v", err)
	}
	if booking.Status != domain.BookingStatusMissed {
		t.Errorf("Expected status MISSED, got %s", booking.Status)
	}
	if len(mq.GetPublishedMessages("booking.missed")) != 1 {
		t.Error("Expected a booking.missed event")
	}
}

func TestMarkMissed_IllegalFromPending(t *testing.T) {
	service, bookings, _, _ := newTestService()

	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return &domain.Booking{ID: id, Status: domain.BookingStatusPending}, nil
	}

	// A no-show can only be recorded after the host accepted the booking.
	_, err := service.MarkMissed(context.Background(), "booking-1")
	var stateErr *domain.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	service, bookings, _, mq := newTestService()

	stored := &domain.Booking{ID: "booking-1", Status: domain.BookingStatusVerified, IsSessionActive: true}
	bookings.FindByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return stored, nil
	}
	bookings.TransitionStatusFunc = func(ctx context.Context, id string, from, to domain.BookingStatus, at time.Time) (bool, error) {
		stored.Status = to
		endedAt := at
		stored.SessionEndedAt = &endedAt
		stored.IsSessionActive = false
		return true, nil
	}

	booking, err := service.Complete(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if booking.Status != domain.BookingStatusCompleted {
		t.Errorf("Expected status COMPLETED, got %s", booking.Status)
	}
	if booking.IsSessionActive {
		t.Error("Expected the session to be closed")
	}
	if len(mq.GetPublishedMessages("booking.completed")) != 1 {
		t.Error("Expected a booking.completed event")
	}
}

func TestGet_NotFound(t *testing.T) {
	service, _, _, _ := newTestService()

	_, err := service.Get(context.Background(), "missing")
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	service, _, _, _ := newTestService()

	_, err := service.List(context.Background(), ports.BookingFilter{Status: "RESERVED"})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestList_DefaultsLimit(t *testing.T) {
	service, bookings, _, _ := newTestService()

	var gotFilter ports.BookingFilter
	bookings.ListFunc = func(ctx context.Context, filter ports.BookingFilter) ([]domain.Booking, error) {
		gotFilter = filter
		return nil, nil
	}

	if _, err := service.List(context.Background(), ports.BookingFilter{}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotFilter.Limit != defaultListLimit {
		t.Errorf("Expected default limit %d, got %d", defaultListLimit, gotFilter.Limit)
	}
}
