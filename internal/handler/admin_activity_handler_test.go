package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cks-portal-api/internal/dto"
	"github.com/noah-isme/cks-portal-api/internal/handler"
	"github.com/noah-isme/cks-portal-api/internal/service"
)

type stubActivityService struct {
	validate    *validator.Validate
	lastList    dto.AdminActivityListRequest
	lastActor   service.ActivityActor
	lastLimit   int
	historyErr  error
	snapshotErr error
}

func (s *stubActivityService) Record(ctx context.Context, entry service.ActivityEntry) (dto.ActivityResponse, error) {
	return dto.ActivityResponse{ActivityType: entry.ActivityType}, nil
}

func (s *stubActivityService) List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error) {
	s.lastList = req
	return dto.AdminActivityListResponse{
		Items:      []dto.ActivityResponse{{ID: 1, ActivityType: "center_created"}},
		Pagination: dto.NewPaginationMeta(1, 20, 1),
	}, nil
}

func (s *stubActivityService) Create(ctx context.Context, actor service.ActivityActor, payload dto.AdminActivityCreateRequest) (dto.ActivityResponse, error) {
	s.lastActor = actor
	if err := s.validate.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}
	return dto.ActivityResponse{ID: 9, ActivityType: payload.ActivityType}, nil
}

func (s *stubActivityService) History(ctx context.Context, entityType, entityID string, limit int) (dto.EntityHistoryResponse, error) {
	s.lastLimit = limit
	if s.historyErr != nil {
		return dto.EntityHistoryResponse{}, s.historyErr
	}
	return dto.EntityHistoryResponse{EntityType: entityType, EntityID: entityID}, nil
}

func (s *stubActivityService) Snapshot(ctx context.Context, entityType, entityID string) (dto.DeletedSnapshotResponse, error) {
	if s.snapshotErr != nil {
		return dto.DeletedSnapshotResponse{}, s.snapshotErr
	}
	return dto.DeletedSnapshotResponse{
		EntityType: entityType,
		EntityID:   entityID,
		DeletedAt:  time.Now(),
		Snapshot:   map[string]interface{}{"name": "North"},
	}, nil
}

func adminActivityApp(svc *stubActivityService) *fiber.App {
	app := fiber.New()
	admin := app.Group("/api/v1/admin", withIdentity("ADM-001", "admin"))
	h := handler.NewAdminActivityHandler(svc, testLogger())
	h.Register(admin.Group("/activities"))
	h.RegisterDeleted(admin.Group("/deleted"))
	return app
}

func TestAdminActivityHandlerList(t *testing.T) {
	svc := &stubActivityService{validate: validator.New()}
	app := adminActivityApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/admin/activities?page=1&page_size=5&actor_id=MGR-012&activity_type=center_created&target_type=center", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "MGR-012", svc.lastList.ActorID)
	require.Equal(t, 5, svc.lastList.PageSize)
	require.Equal(t, "center", svc.lastList.TargetType)

	env := decodeEnvelope(t, resp)
	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	require.Equal(t, int64(1), meta.TotalItems)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/admin/activities?page_size=x", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminActivityHandlerCreate(t *testing.T) {
	svc := &stubActivityService{validate: validator.New()}
	app := adminActivityApp(svc)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/admin/activities", map[string]interface{}{"activity_type": "report_filed"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "ADM-001", svc.lastActor.ID)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/admin/activities", map[string]interface{}{"activity_type": "x"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	require.Equal(t, "validation failed", env.Message)
	require.Equal(t, "min", env.Details["ActivityType"])
}

func TestAdminActivityHandlerHistoryAndSnapshot(t *testing.T) {
	svc := &stubActivityService{validate: validator.New()}
	app := adminActivityApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/admin/activities/entity/center/CEN-001?limit=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 5, svc.lastLimit)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/admin/deleted/center/CEN-001/snapshot", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	var snapshot dto.DeletedSnapshotResponse
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	require.Equal(t, "North", snapshot.Snapshot["name"])

	cases := []struct {
		name   string
		svc    *stubActivityService
		path   string
		status int
	}{
		{"invalid type", &stubActivityService{historyErr: service.ErrInvalidEntityType}, "/api/v1/admin/activities/entity/planet/X-1", fiber.StatusBadRequest},
		{"history failure", &stubActivityService{historyErr: errors.New("boom")}, "/api/v1/admin/activities/entity/center/CEN-001", fiber.StatusInternalServerError},
		{"missing snapshot", &stubActivityService{snapshotErr: service.ErrSnapshotNotFound}, "/api/v1/admin/deleted/center/CEN-404/snapshot", fiber.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, adminActivityApp(tc.svc), http.MethodGet, tc.path, nil)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
