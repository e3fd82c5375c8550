package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/ports"
)

type ChargerHandler struct {
	service ports.ChargerService
	log     *zap.Logger
}

func NewChargerHandler(service ports.ChargerService, log *zap.Logger) *ChargerHandler {
	return &ChargerHandler{
		service: service,
		log:     log,
	}
}

func (h *ChargerHandler) List(c *fiber.Ctx) error {
	hostID, _ := c.Locals("host_id").(string)
	chargers, err := h.service.List(c.Context(), hostID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(chargers)
}

func (h *ChargerHandler) Get(c *fiber.Ctx) error {
	charger, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(charger)
}

// Availability is the dashboard's pre-check before directing a customer to a
// charger. It reads current state and carries no lock; session start itself
// re-checks availability inside the verification unit of work.
func (h *ChargerHandler) Availability(c *fiber.Ctx) error {
	id := c.Params("id")
	available, err := h.service.IsAvailableForSession(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"charger_id": id,
		"available":  available,
	})
}
