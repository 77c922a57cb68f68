package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cks-portal-api/tests/testapp"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

type feedItem struct {
	ID           uint   `json:"id"`
	ActivityType string `json:"activity_type"`
	ActivityKind string `json:"activity_kind"`
}

type feedPayload struct {
	Items      []feedItem `json:"items"`
	ScopeSize  int        `json:"scope_size"`
	CacheHit   bool       `json:"cache_hit"`
	Pagination struct {
		TotalItems int64 `json:"total_items"`
	} `json:"pagination"`
}

func doRequest(t *testing.T, stack testapp.Stack, method, path, token string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := stack.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func fetchFeed(t *testing.T, stack testapp.Stack, token string) feedPayload {
	t.Helper()
	status, env := doRequest(t, stack, http.MethodGet, "/api/v1/hub/activities", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var feed feedPayload
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	return feed
}

func activityTypes(feed feedPayload) []string {
	types := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		types = append(types, item.ActivityType)
	}
	return types
}

func seedPayload() map[string]interface{} {
	return map[string]interface{}{
		"managers":    []map[string]interface{}{{"manager_id": "mgr-012", "name": "Morgan"}},
		"contractors": []map[string]interface{}{{"contractor_id": "CON-003", "cks_manager": "MGR-012", "name": "Acme Cleaning"}},
		"customers":   []map[string]interface{}{{"customer_id": "CUS-010", "contractor_id": "CON-003", "cks_manager": "MGR-012", "name": "Globex"}},
		"centers":     []map[string]interface{}{{"center_id": "CEN-020", "customer_id": "CUS-010", "contractor_id": "CON-003", "cks_manager": "MGR-012", "name": "North"}},
		"crew":        []map[string]interface{}{{"crew_id": "CRW-001", "assigned_center": "CEN-020", "cks_manager": "MGR-012", "name": "Dana"}},
		"warehouses":  []map[string]interface{}{{"warehouse_id": "WAR-001", "manager_id": "MGR-012", "name": "Central"}},
		"orders":      []map[string]interface{}{{"order_id": "CEN-020-PO-001", "customer_id": "CUS-010", "destination_center": "CEN-020", "warehouse_id": "WAR-001"}},
	}
}

func TestHubActivityLifecycle(t *testing.T) {
	stack := testapp.New(t)
	admin := testapp.Token(t, "ADM-001", "admin")
	manager := testapp.Token(t, "MGR-012", "manager")

	status, _ := doRequest(t, stack, http.MethodPost, "/api/v1/tools/seed/hierarchy", "", seedPayload(), map[string]string{"X-Seed-Token": "wrong"})
	require.Equal(t, http.StatusForbidden, status)

	status, env := doRequest(t, stack, http.MethodPost, "/api/v1/tools/seed/hierarchy", "", seedPayload(), map[string]string{"X-Seed-Token": testapp.SeedToken})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = doRequest(t, stack, http.MethodGet, "/api/v1/hub/ecosystem", manager, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var ecosystem struct {
		Role    string   `json:"role"`
		Members []string `json:"members"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ecosystem))
	require.Equal(t, "manager", ecosystem.Role)
	require.Subset(t, ecosystem.Members, []string{"MGR-012", "CON-003", "CUS-010", "CEN-020", "CRW-001"})

	require.Empty(t, fetchFeed(t, stack, manager).Items)

	status, env = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center", admin, map[string]interface{}{
		"name":        "Uptown",
		"cks_manager": "MGR-012",
		"customer_id": "CUS-010",
	}, nil)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var center struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &center))
	require.Equal(t, "CEN-021", center.ID)

	status, env = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/crew", admin, map[string]interface{}{"name": "Riley"}, nil)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var crew struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &crew))
	require.Equal(t, "CRW-002", crew.ID)

	status, env = doRequest(t, stack, http.MethodPost, "/api/v1/admin/assignments", admin, map[string]interface{}{
		"kind":      "crew_to_center",
		"child_id":  crew.ID,
		"parent_id": center.ID,
	}, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	feed := fetchFeed(t, stack, manager)
	require.ElementsMatch(t, []string{"crew_assigned_to_center", "crew_created", "center_created"}, activityTypes(feed))
	require.Equal(t, "crew_assigned_to_center", feed.Items[0].ActivityType)
	require.Equal(t, "assigned", feed.Items[0].ActivityKind)
	require.False(t, feed.CacheHit)
	require.True(t, fetchFeed(t, stack, manager).CacheHit)

	crewFeed := fetchFeed(t, stack, testapp.Token(t, crew.ID, "crew"))
	require.Contains(t, activityTypes(crewFeed), "crew_assigned_to_center")

	outsider := fetchFeed(t, stack, testapp.Token(t, "MGR-099", "manager"))
	require.Empty(t, outsider.Items)

	status, _ = doRequest(t, stack, http.MethodPost, fmt.Sprintf("/api/v1/hub/activities/%d/dismiss", feed.Items[0].ID), manager, nil, nil)
	require.Equal(t, http.StatusOK, status)

	afterDismiss := fetchFeed(t, stack, manager)
	require.Len(t, afterDismiss.Items, 2)
	require.NotContains(t, activityTypes(afterDismiss), "crew_assigned_to_center")

	// dismissals are per actor
	require.Contains(t, activityTypes(fetchFeed(t, stack, testapp.Token(t, crew.ID, "crew"))), "crew_assigned_to_center")

	status, env = doRequest(t, stack, http.MethodPost, "/api/v1/hub/activities/clear", manager, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var cleared struct {
		Dismissed int64 `json:"dismissed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cleared))
	require.EqualValues(t, 2, cleared.Dismissed)
	require.Empty(t, fetchFeed(t, stack, manager).Items)

	status, env = doRequest(t, stack, http.MethodGet, "/api/v1/admin/activities", admin, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var audit []feedItem
	require.NoError(t, json.Unmarshal(env.Data, &audit))
	require.Len(t, audit, 3)
}

func TestHubAccessControl(t *testing.T) {
	stack := testapp.New(t)

	status, _ := doRequest(t, stack, http.MethodGet, "/api/v1/hub/activities", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, stack, http.MethodGet, "/api/v1/admin/activities", testapp.Token(t, "CRW-001", "crew"), nil, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, stack, http.MethodGet, "/api/v1/hub/activities", testapp.Token(t, "ADM-001", "admin"), nil, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, stack, http.MethodGet, "/api/v1/health", "", nil, nil)
	require.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := stack.App.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func adminEcosystemMembers(t *testing.T, stack testapp.Stack, token, path string) []string {
	t.Helper()
	status, env := doRequest(t, stack, http.MethodGet, path, token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var ecosystem struct {
		Members []string `json:"members"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ecosystem))
	return ecosystem.Members
}

func TestDirectoryArchiveRestoreHardDelete(t *testing.T) {
	stack := testapp.New(t)
	admin := testapp.Token(t, "ADM-001", "admin")
	manager := testapp.Token(t, "MGR-012", "manager")

	status, env := doRequest(t, stack, http.MethodPost, "/api/v1/tools/seed/hierarchy", "", seedPayload(), map[string]string{"X-Seed-Token": testapp.SeedToken})
	require.Equal(t, http.StatusOK, status, env.Message)

	require.Contains(t, adminEcosystemMembers(t, stack, admin, "/api/v1/admin/ecosystem/center/CEN-020"), "CRW-001")

	status, _ = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center/CEN-020/hard-delete", admin, nil, nil)
	require.Equal(t, http.StatusConflict, status)

	status, env = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center/cen-020/archive", admin, nil, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var archived struct {
		Status             string `json:"status"`
		UnassignedChildren int64  `json:"unassigned_children"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &archived))
	require.Equal(t, "archived", archived.Status)
	require.EqualValues(t, 1, archived.UnassignedChildren)

	require.NotContains(t, adminEcosystemMembers(t, stack, admin, "/api/v1/admin/ecosystem/center/CEN-020"), "CRW-001")

	status, env = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center/CEN-020/restore", admin, nil, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	// restored entities come back without their former children
	require.NotContains(t, adminEcosystemMembers(t, stack, admin, "/api/v1/admin/ecosystem/center/CEN-020"), "CRW-001")

	status, _ = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center/CEN-020/archive", admin, nil, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center/CEN-020/hard-delete", admin, nil, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	status, _ = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center/CEN-020/hard-delete", admin, nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, env = doRequest(t, stack, http.MethodGet, "/api/v1/admin/deleted/center/CEN-020/snapshot", admin, nil, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var snapshot struct {
		EntityID string                 `json:"entity_id"`
		Snapshot map[string]interface{} `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	require.Equal(t, "CEN-020", snapshot.EntityID)
	require.Equal(t, "North", snapshot.Snapshot["name"])

	status, _ = doRequest(t, stack, http.MethodPost, "/api/v1/admin/directory/center/CEN-020/restore", manager, nil, nil)
	require.Equal(t, http.StatusForbidden, status)

	// lifecycle noise never reaches the hub feed
	require.Empty(t, fetchFeed(t, stack, manager).Items)
}
