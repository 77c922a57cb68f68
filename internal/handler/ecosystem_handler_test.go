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
	"github.com/noah-isme/cks-portal-api/internal/identity"
	"github.com/noah-isme/cks-portal-api/internal/service"
)

type stubEcosystemService struct {
	lastRole identity.Role
	lastRoot string
	err      error
}

func (s *stubEcosystemService) Resolve(ctx context.Context, role identity.Role, rootID string) (service.Ecosystem, error) {
	return service.Ecosystem{}, errors.New("not used")
}

func (s *stubEcosystemService) Describe(ctx context.Context, role identity.Role, rootID string) (dto.EcosystemResponse, error) {
	s.lastRole = role
	s.lastRoot = rootID
	if s.err != nil {
		return dto.EcosystemResponse{}, s.err
	}
	return dto.EcosystemResponse{Role: string(role), RootID: rootID, Members: []string{rootID}, Size: 1}, nil
}

func TestEcosystemHandlerHubUsesCallerIdentity(t *testing.T) {
	svc := &stubEcosystemService{}
	app := fiber.New()
	handler.NewEcosystemHandler(svc, testLogger()).RegisterHub(app.Group("/api/v1/hub/ecosystem", withIdentity("CTR-020", "")))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/hub/ecosystem", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "false", resp.Header.Get("X-Cache-Hit"))
	require.Equal(t, identity.RoleCenter, svc.lastRole)
	require.Equal(t, "CTR-020", svc.lastRoot)

	env := decodeEnvelope(t, resp)
	var data dto.EcosystemResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, 1, data.Size)
}

func TestEcosystemHandlerHubRequiresIdentity(t *testing.T) {
	app := fiber.New()
	handler.NewEcosystemHandler(&stubEcosystemService{}, testLogger()).RegisterHub(app.Group("/api/v1/hub/ecosystem"))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/hub/ecosystem", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestEcosystemHandlerAdmin(t *testing.T) {
	svc := &stubEcosystemService{}
	app := fiber.New()
	handler.NewEcosystemHandler(svc, testLogger()).RegisterAdmin(app.Group("/api/v1/admin/ecosystem"))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/admin/ecosystem/Manager/mgr-012", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, identity.RoleManager, svc.lastRole)
	require.Equal(t, "mgr-012", svc.lastRoot)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/admin/ecosystem/admin/ADM-001", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/admin/ecosystem/planet/X-1", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	failing := fiber.New()
	handler.NewEcosystemHandler(&stubEcosystemService{err: errors.New("db down")}, testLogger()).RegisterAdmin(failing.Group("/api/v1/admin/ecosystem"))
	resp = doJSON(t, failing, http.MethodGet, "/api/v1/admin/ecosystem/crew/CRW-001", nil)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
