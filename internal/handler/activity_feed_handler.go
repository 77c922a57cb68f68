package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/service"
	"github.com/noah-isme/cks-portal-api/internal/utils"
)

// ActivityFeedHandler serves the hub activity feed of the authenticated actor.
type ActivityFeedHandler struct {
	service service.ActivityFeedService
	logger  zerolog.Logger
}

// NewActivityFeedHandler constructs the handler instance.
func NewActivityFeedHandler(service service.ActivityFeedService, logger zerolog.Logger) *ActivityFeedHandler {
	return &ActivityFeedHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_feed_handler").Logger(),
	}
}

// Register wires the activity feed routes. clearLimiter guards the bulk clear endpoint and may be nil.
func (h *ActivityFeedHandler) Register(router fiber.Router, clearLimiter fiber.Handler) {
	router.Get("", h.list)
	if clearLimiter != nil {
		router.Post("/clear", clearLimiter, h.clear)
	} else {
		router.Post("/clear", h.clear)
	}
	router.Post("/:id/dismiss", h.dismiss)
}

func (h *ActivityFeedHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	actor := activityActorFromContext(c)
	result, err := h.service.ListForActor(c.UserContext(), actor, dto.ActivityFeedRequest{Page: page, PageSize: pageSize})
	if err != nil {
		if errors.Is(err, service.ErrActorRequired) {
			return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("actor_id", actor.ID).Msg("failed to build activity feed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch activities")
	}

	c.Set("X-Cache-Hit", strconv.FormatBool(result.CacheHit))
	return utils.SendSuccess(c, "activities retrieved", result)
}

func (h *ActivityFeedHandler) dismiss(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

	actor := activityActorFromContext(c)
	if err := h.service.Dismiss(c.UserContext(), actor, uint(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrActivityNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "activity not found")
		case errors.Is(err, service.ErrActorRequired):
			return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint64("activity_id", id).Msg("failed to dismiss activity")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to dismiss activity")
	}

	return utils.SendSuccess(c, "activity dismissed", fiber.Map{"id": id})
}

func (h *ActivityFeedHandler) clear(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	result, err := h.service.Clear(c.UserContext(), actor)
	if err != nil {
		if errors.Is(err, service.ErrActorRequired) {
			return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("actor_id", actor.ID).Msg("failed to clear activities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to clear activities")
	}

	return utils.SendSuccess(c, "activities cleared", result)
}
