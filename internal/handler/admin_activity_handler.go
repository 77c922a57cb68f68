package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/service"
	"github.com/noah-isme/cks-portal-api/internal/utils"
)

// AdminActivityHandler exposes the unfiltered audit log to administrators.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/entity/:entityType/:entityId", h.history)
}

// RegisterDeleted attaches the hard-delete snapshot route.
func (h *AdminActivityHandler) RegisterDeleted(router fiber.Router) {
	router.Get("/:entityType/:entityId/snapshot", h.snapshot)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	req := dto.AdminActivityListRequest{
		Page:         page,
		PageSize:     pageSize,
		ActorID:      c.Query("actor_id"),
		ActivityType: c.Query("activity_type"),
		TargetType:   c.Query("target_type"),
	}

	response, err := h.service.List(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity logs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity logs")
	}

	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}

func (h *AdminActivityHandler) create(c *fiber.Ctx) error {
	var payload dto.AdminActivityCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	entry, err := h.service.Create(c.UserContext(), actor, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create activity log")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create activity log")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity log created", entry)
}

func (h *AdminActivityHandler) history(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	response, err := h.service.History(c.UserContext(), c.Params("entityType"), c.Params("entityId"), limit)
	if err != nil {
		return h.lookupError(c, err, "failed to load entity history")
	}

	return utils.SendSuccess(c, "entity history", response)
}

func (h *AdminActivityHandler) snapshot(c *fiber.Ctx) error {
	response, err := h.service.Snapshot(c.UserContext(), c.Params("entityType"), c.Params("entityId"))
	if err != nil {
		return h.lookupError(c, err, "failed to load snapshot")
	}

	return utils.SendSuccess(c, "deleted entity snapshot", response)
}

func (h *AdminActivityHandler) lookupError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrInvalidEntityType):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity type")
	case errors.Is(err, service.ErrSnapshotNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "snapshot not found")
	case errors.Is(err, service.ErrEntityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "entity not found")
	}
	requestLogger(h.logger, c).Error().Err(err).Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}
