package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/handler"
	"github.com/noah-isme/cks-portal-api/internal/service"
)

type stubFeedService struct {
	lastActor   service.ActivityActor
	lastRequest dto.ActivityFeedRequest
	lastID      uint
	response    dto.ActivityFeedResponse
	err         error
}

func (s *stubFeedService) ListForActor(ctx context.Context, actor service.ActivityActor, req dto.ActivityFeedRequest) (dto.ActivityFeedResponse, error) {
	s.lastActor = actor
	s.lastRequest = req
	return s.response, s.err
}

func (s *stubFeedService) Dismiss(ctx context.Context, actor service.ActivityActor, activityID uint) error {
	s.lastActor = actor
	s.lastID = activityID
	return s.err
}

func (s *stubFeedService) Clear(ctx context.Context, actor service.ActivityActor) (dto.ActivityClearResponse, error) {
	s.lastActor = actor
	if s.err != nil {
		return dto.ActivityClearResponse{}, s.err
	}
	return dto.ActivityClearResponse{Dismissed: 4}, nil
}

func feedApp(svc service.ActivityFeedService, id, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/hub/activities", withIdentity(id, role))
	handler.NewActivityFeedHandler(svc, testLogger()).Register(group, nil)
	return app
}

func TestActivityFeedHandlerList(t *testing.T) {
	svc := &stubFeedService{response: dto.ActivityFeedResponse{
		Items:     []dto.ActivityResponse{{ID: 3, ActivityType: "service_started"}},
		ScopeSize: 11,
		CacheHit:  true,
	}}
	app := feedApp(svc, "MGR-012", "manager")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/hub/activities?page=2&pageSize=10", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "true", resp.Header.Get("X-Cache-Hit"))

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)
	var data dto.ActivityFeedResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Items, 1)
	require.Equal(t, 11, data.ScopeSize)

	require.Equal(t, "MGR-012", svc.lastActor.ID)
	require.Equal(t, "manager", svc.lastActor.Role)
	require.Equal(t, 2, svc.lastRequest.Page)
	require.Equal(t, 10, svc.lastRequest.PageSize)
}

func TestActivityFeedHandlerListErrors(t *testing.T) {
	app := feedApp(&stubFeedService{}, "MGR-012", "manager")
	resp := doJSON(t, app, http.MethodGet, "/api/v1/hub/activities?page=abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	app = feedApp(&stubFeedService{err: service.ErrActorRequired}, "", "")
	resp = doJSON(t, app, http.MethodGet, "/api/v1/hub/activities", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	app = feedApp(&stubFeedService{err: errors.New("db down")}, "MGR-012", "manager")
	resp = doJSON(t, app, http.MethodGet, "/api/v1/hub/activities", nil)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	require.Equal(t, "failed to fetch activities", env.Message)
}

func TestActivityFeedHandlerDismiss(t *testing.T) {
	svc := &stubFeedService{}
	app := feedApp(svc, "crw-001", "crew")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/hub/activities/42/dismiss", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(42), svc.lastID)
	require.Equal(t, "CRW-001", svc.lastActor.ID)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/hub/activities/nope/dismiss", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	missing := feedApp(&stubFeedService{err: service.ErrActivityNotFound}, "CRW-001", "crew")
	resp = doJSON(t, missing, http.MethodPost, "/api/v1/hub/activities/7/dismiss", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestActivityFeedHandlerClear(t *testing.T) {
	svc := &stubFeedService{}
	app := feedApp(svc, "CEN-001", "center")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/hub/activities/clear", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	var data dto.ActivityClearResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, int64(4), data.Dismissed)
	require.Equal(t, "center", svc.lastActor.Role)
}
