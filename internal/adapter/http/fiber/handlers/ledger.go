package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/domain"
	"github.com/volthost/volthost-api/internal/ports"
)

type LedgerHandler struct {
	service ports.LedgerService
	log     *zap.Logger
}

func NewLedgerHandler(service ports.LedgerService, log *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		log:     log,
	}
}

func (h *LedgerHandler) List(c *fiber.Ctx) error {
	entries, err := h.service.Recent(c.Context(), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (h *LedgerHandler) Summary(c *fiber.Ctx) error {
	source := domain.TransactionSource(c.Query("source"))
	summary, err := h.service.Summary(c.Context(), source)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
