package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/models"
	"github.com/noah-isme/cks-portal-api/internal/repository"
	"github.com/noah-isme/cks-portal-api/internal/service"
	"github.com/noah-isme/cks-portal-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding data.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/hierarchy", h.hierarchy)
}

type seedHierarchyRequest struct {
	Managers    []models.Manager       `json:"managers"`
	Contractors []models.Contractor    `json:"contractors"`
	Customers   []models.Customer      `json:"customers"`
	Centers     []models.Center        `json:"centers"`
	Crew        []models.Crew          `json:"crew"`
	Warehouses  []models.Warehouse     `json:"warehouses"`
	Orders      []models.Order         `json:"orders"`
	Inventory   []models.InventoryItem `json:"inventory"`
}

func (h *SeedHandler) hierarchy(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload seedHierarchyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	affected, err := h.service.SeedHierarchy(c.UserContext(), token, repository.HierarchySeed{
		Managers:    payload.Managers,
		Contractors: payload.Contractors,
		Customers:   payload.Customers,
		Centers:     payload.Centers,
		Crew:        payload.Crew,
		Warehouses:  payload.Warehouses,
		Orders:      payload.Orders,
		Inventory:   payload.Inventory,
	})
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "hierarchy seeded", fiber.Map{"affected": affected})
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case errors.Is(err, service.ErrSeedUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	default:
		h.logger.Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}
