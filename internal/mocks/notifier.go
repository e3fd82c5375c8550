package mocks

import (
	"context"
	"time"

	"github.com/volthost/volthost-api/internal/domain"
)

// NotifiedOTP records one delivery attempt made through the mock notifier
type NotifiedOTP struct {
	BookingID string
	Code      string
	ExpiresAt time.Time
}

// MockOTPNotifier is a mock implementation of OTPNotifier
type MockOTPNotifier struct {
	Notified      []NotifiedOTP
	NotifyOTPFunc func(ctx context.Context, booking *domain.Booking, code string, expiresAt time.Time) error
}

func (m *MockOTPNotifier) NotifyOTP(ctx context.Context, booking *domain.Booking, code string, expiresAt time.Time) error {
	if m.NotifyOTPFunc != nil {
		return m.NotifyOTPFunc(ctx, booking, code, expiresAt)
	}
	m.Notified = append(m.Notified, NotifiedOTP{BookingID: booking.ID, Code: code, ExpiresAt: expiresAt})
	return nil
}
