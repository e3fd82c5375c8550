package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

type BookingHandler struct {
	bookings     ports.BookingService
	verification ports.VerificationService
	log          *zap.Logger
}

func NewBookingHandler(bookings ports.BookingService, verification ports.VerificationService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings:     bookings,
		verification: verification,
		log:          log,
	}
}

type CreateBookingRequest struct {
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	VehicleModel string    `json:"vehicle_model"`
	ChargerID    string    `json:"charger_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Hours        float64   `json:"hours"`
	Amount       float64   `json:"amount"`
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
	}

	booking, err := h.bookings.Create(c.Context(), ports.CreateBookingInput{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		VehicleModel: req.VehicleModel,
		ChargerID:    req.ChargerID,
		ScheduledAt:  req.ScheduledAt,
		Hours:        req.Hours,
		Amount:       req.Amount,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	filter := ports.BookingFilter{
		Status:    domain.BookingStatus(c.Query("status")),
		ChargerID: c.Query("charger_id"),
		Limit:     c.QueryInt("limit", 50),
		Offset:    c.QueryInt("offset", 0),
	}

	bookings, err := h.bookings.List(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(bookings)
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	booking, err := h.bookings.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

func (h *BookingHandler) Accept(c *fiber.Ctx) error {
	booking, err := h.bookings.Accept(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	booking, err := h.bookings.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

func (h *BookingHandler) MarkMissed(c *fiber.Ctx) error {
	booking, err := h.bookings.MarkMissed(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

func (h *BookingHandler) Complete(c *fiber.Ctx) error {
	booking, err := h.bookings.Complete(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

type GenerateOTPRequest struct {
	Regenerate bool `json:"regenerate"`
}

func (h *BookingHandler) GenerateOTP(c *fiber.Ctx) error {
	var req GenerateOTPRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
	}

	issue, err := h.verification.GenerateOTP(c.Context(), c.Params("id"), req.Regenerate)
	if err != nil {
		return err
	}
	return c.JSON(issue)
}

type VerifyOTPRequest struct {
	Code string `json:"code"`
}

func (h *BookingHandler) Verify(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
	}
	if req.Code == "" {
		return domain.NewValidationError("code", "required")
	}

	session, err := h.verification.VerifySession(c.Context(), c.Params("id"), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(session)
}
