package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/service"
	"github.com/noah-isme/cks-portal-api/internal/utils"
)

// AdminDirectoryHandler provisions, links and archives hierarchy entities.
type AdminDirectoryHandler struct {
	service service.DirectoryService
	logger  zerolog.Logger
}

// NewAdminDirectoryHandler constructs the handler.
func NewAdminDirectoryHandler(service service.DirectoryService, logger zerolog.Logger) *AdminDirectoryHandler {
	return &AdminDirectoryHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_directory_handler").Logger(),
	}
}

// RegisterDirectory attaches entity routes.
func (h *AdminDirectoryHandler) RegisterDirectory(router fiber.Router) {
	router.Post("/:role", h.create)
	router.Post("/:role/:id/archive", h.archive)
	router.Post("/:role/:id/restore", h.restore)
	router.Post("/:role/:id/hard-delete", h.hardDelete)
}

// RegisterAssignments attaches the assignment route.
func (h *AdminDirectoryHandler) RegisterAssignments(router fiber.Router) {
	router.Post("", h.assign)
}

func (h *AdminDirectoryHandler) create(c *fiber.Ctx) error {
	role, ok := identity.ParseRole(c.Params("role"))
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role")
	}

	var payload dto.DirectoryCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	entity, err := h.service.Create(c.UserContext(), activityActorFromContext(c), role, payload)
	if err != nil {
		return h.directoryError(c, err, "failed to create entity")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "entity created", entity)
}

func (h *AdminDirectoryHandler) assign(c *fiber.Ctx) error {
	var payload dto.AssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Assign(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return h.directoryError(c, err, "failed to apply assignment")
	}

	return utils.SendSuccess(c, "assignment applied", result)
}

func (h *AdminDirectoryHandler) archive(c *fiber.Ctx) error {
	role, ok := identity.ParseRole(c.Params("role"))
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role")
	}

	entity, err := h.service.Archive(c.UserContext(), activityActorFromContext(c), role, c.Params("id"))
	if err != nil {
		return h.directoryError(c, err, "failed to archive entity")
	}

	return utils.SendSuccess(c, "entity archived", entity)
}

func (h *AdminDirectoryHandler) restore(c *fiber.Ctx) error {
	role, ok := identity.ParseRole(c.Params("role"))
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role")
	}

	entity, err := h.service.Restore(c.UserContext(), activityActorFromContext(c), role, c.Params("id"))
	if err != nil {
		return h.directoryError(c, err, "failed to restore entity")
	}

	return utils.SendSuccess(c, "entity restored", entity)
}

func (h *AdminDirectoryHandler) hardDelete(c *fiber.Ctx) error {
	role, ok := identity.ParseRole(c.Params("role"))
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role")
	}

	entity, err := h.service.HardDelete(c.UserContext(), activityActorFromContext(c), role, c.Params("id"))
	if err != nil {
		return h.directoryError(c, err, "failed to delete entity")
	}

	return utils.SendSuccess(c, "entity deleted", entity)
}

func (h *AdminDirectoryHandler) directoryError(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrInvalidRole):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role")
	case errors.Is(err, service.ErrInvalidAssignment):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEntityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "entity not found")
	case errors.Is(err, service.ErrNotArchived), errors.Is(err, service.ErrActiveChildren):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	}
	requestLogger(h.logger, c).Error().Err(err).Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}
