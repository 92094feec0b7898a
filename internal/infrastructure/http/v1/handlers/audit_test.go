package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/infrastructure/http/v1/middleware"
	"quimstock/internal/infrastructure/storage/postgres"
)

type fakeAuditLog struct {
	entries []postgres.AuditEntry

	gotType  string
	gotID    id.ID
	gotLimit int
}

func (f *fakeAuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action postgres.AuditAction, changes map[string]any) error {
	return nil
}

func (f *fakeAuditLog) GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error) {
	f.gotType = entityType
	f.gotID = entityID
	f.gotLimit = limit
	return f.entries, nil
}

func auditTestRouter(h *ItemHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/reagents/:id/audit", h.AuditHistory)
	return r
}

func TestAuditHistory_ReturnsTrailWithoutResolvingItem(t *testing.T) {
	reagentID := id.New()
	fake := &fakeAuditLog{entries: []postgres.AuditEntry{
		{
			ID:         id.New(),
			EntityType: "reagent",
			EntityID:   reagentID,
			Action:     postgres.AuditActionDelete,
			Username:   "ana",
			Changes:    json.RawMessage(`{"name":"Saline Solution"}`),
			CreatedAt:  time.Now().UTC(),
		},
	}}
	// Nil item service: the trail must stay readable for deleted items,
	// so the handler never resolves the item first.
	h := NewItemHandler(nil, fake, entity.KindReagent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reagents/"+reagentID.String()+"/audit", nil)
	auditTestRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reagent", fake.gotType)
	assert.Equal(t, reagentID, fake.gotID)
	assert.Equal(t, 50, fake.gotLimit)

	var body struct {
		Items []postgres.AuditEntry `json:"items"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, postgres.AuditActionDelete, body.Items[0].Action)
	assert.Equal(t, "ana", body.Items[0].Username)
}

func TestAuditHistory_CustomLimit(t *testing.T) {
	fake := &fakeAuditLog{}
	h := NewItemHandler(nil, fake, entity.KindMaterial)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/materials/:id/audit", h.AuditHistory)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/materials/"+id.New().String()+"/audit?limit=5", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "material", fake.gotType)
	assert.Equal(t, 5, fake.gotLimit)
}

func TestAuditHistory_InvalidID(t *testing.T) {
	fake := &fakeAuditLog{}
	h := NewItemHandler(nil, fake, entity.KindReagent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reagents/not-a-uuid/audit", nil)
	auditTestRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fake.gotType)
}
