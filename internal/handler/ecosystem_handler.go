package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/service"
	"github.com/noah-isme/cks-portal-api/internal/utils"
)

// EcosystemHandler exposes resolved hierarchy scopes.
type EcosystemHandler struct {
	service service.EcosystemService
	logger  zerolog.Logger
}

// NewEcosystemHandler constructs the handler.
func NewEcosystemHandler(service service.EcosystemService, logger zerolog.Logger) *EcosystemHandler {
	return &EcosystemHandler{
		service: service,
		logger:  logger.With().Str("component", "ecosystem_handler").Logger(),
	}
}

// RegisterHub serves the caller's own ecosystem.
func (h *EcosystemHandler) RegisterHub(router fiber.Router) {
	router.Get("", h.own)
}

// RegisterAdmin serves the ecosystem of any root.
func (h *EcosystemHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/:role/:id", h.byRoot)
}

func (h *EcosystemHandler) own(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	if actor.Code() == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return h.describe(c, actor.HubRole(), actor.Code())
}

func (h *EcosystemHandler) byRoot(c *fiber.Ctx) error {
	role, ok := identity.ParseRole(c.Params("role"))
	if !ok || role == identity.RoleAdmin {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role")
	}
	return h.describe(c, role, c.Params("id"))
}

func (h *EcosystemHandler) describe(c *fiber.Ctx, role identity.Role, root string) error {
	result, err := h.service.Describe(c.UserContext(), role, root)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("role", string(role)).Str("root_id", root).Msg("failed to resolve ecosystem")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve ecosystem")
	}

	c.Set("X-Cache-Hit", strconv.FormatBool(result.CacheHit))
	return utils.SendSuccess(c, "ecosystem resolved", result)
}
