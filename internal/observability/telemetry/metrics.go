package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "volthost_bookings_created_total",
		Help: "Total number of bookings created",
	})

	OTPIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "volthost_otp_issued_total",
		Help: "Total number of session OTPs issued",
	})

	SessionsVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "volthost_sessions_verified_total",
		Help: "Total number of charging sessions verified via OTP",
	})

	ActiveChargingSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "volthost_active_charging_sessions",
		Help: "Number of currently active charging sessions",
	})

	LedgerAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "volthost_ledger_amount_total",
		Help: "Total amount appended to the ledger",
	}, []string{"source"})
)
