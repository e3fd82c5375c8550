package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

// LogOTPNotifier writes issued OTPs to the application log. There is no real
// SMS or email delivery; the hosted dashboard reads the code from the API
// response and this log line exists for operators.
type LogOTPNotifier struct {
	log *zap.Logger
}

func NewLogOTPNotifier(log *zap.Logger) ports.OTPNotifier {
	return &LogOTPNotifier{log: log}
}

func (n *LogOTPNotifier) NotifyOTP(ctx context.Context, booking *domain.Booking, code string, expiresAt time.Time) error {
	n.log.Info("booking otp issued",
		zap.String("booking_id", booking.ID),
		zap.String("booking_code", booking.Code),
		zap.String("customer_id", booking.CustomerID),
		zap.String("otp", code),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}
