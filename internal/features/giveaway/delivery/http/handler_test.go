package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reinacchi/eris-giveaways/internal/common/middleware"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/manager"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/platform/chatmem"
)

type memRepo struct {
	records []*models.Giveaway
}

func (r *memRepo) LoadAll(context.Context) ([]*models.Giveaway, error) {
	return r.records, nil
}

func (r *memRepo) SaveAll(_ context.Context, giveaways []*models.Giveaway) error {
	r.records = giveaways
	return nil
}

type testAPI struct {
	router *gin.Engine
	chat   *chatmem.Client
}

func newTestAPI() *testAPI {
	gin.SetMode(gin.TestMode)

	client := chatmem.New()
	mgr := manager.New(&memRepo{}, client, client, nil, manager.Options{})
	// Mirror entry signals into the in-memory platform so ends see them.
	mgr.Subscribe(manager.EventEntrySignalAdded, func(_ manager.Event, p manager.Payload) {
		client.UpsertMember(*p.Member)
		client.AddReactor(p.Giveaway.MessageID, p.Giveaway.Reaction, p.Member.ID)
	})

	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1")
	NewGiveawayHandler(mgr).RegisterRoutes(api)
	return &testAPI{router: router, chat: client}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) startGiveaway(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/giveaways", models.GiveawayStart{
		ChannelID:   "channel-1",
		GuildID:     "guild-1",
		Prize:       "Nitro",
		Duration:    60_000,
		WinnerCount: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Giveaway models.Giveaway `json:"giveaway"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Giveaway.MessageID)
	return resp.Giveaway.MessageID
}

func TestStartAndGetGiveaway(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	rec := api.do(t, http.MethodGet, "/api/v1/giveaways/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success  bool            `json:"success"`
		Giveaway models.Giveaway `json:"giveaway"`
		State    string          `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Nitro", resp.Giveaway.Prize)
	assert.False(t, resp.Giveaway.Ended)
	assert.Equal(t, string(models.StateActive), resp.State)
}

func TestStartRejectsInvalidPayload(t *testing.T) {
	api := newTestAPI()
	rec := api.do(t, http.MethodPost, "/api/v1/giveaways", map[string]any{
		"channelId": "channel-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
}

func TestGetUnknownGiveaway(t *testing.T) {
	api := newTestAPI()
	rec := api.do(t, http.MethodGet, "/api/v1/giveaways/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListGiveaways(t *testing.T) {
	api := newTestAPI()
	api.startGiveaway(t)
	api.startGiveaway(t)

	rec := api.do(t, http.MethodGet, "/api/v1/giveaways", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Giveaways []models.Giveaway `json:"giveaways"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Giveaways, 2)
}

func TestEntryThenEndPicksWinner(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/entries", id), models.EntrySignal{
		ParticipantID: "alice",
		Username:      "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/end", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Winners []string `json:"winners"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"alice"}, resp.Winners)
}

func TestEndTwiceConflicts(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/end", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/end", id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPauseAndUnpause(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/pause", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Giveaway models.Giveaway `json:"giveaway"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Giveaway.Pause)
	assert.True(t, resp.Giveaway.Pause.IsPaused)

	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/unpause", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Pausing again after an unpause cycle is allowed.
	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/pause", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnpauseActiveConflicts(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/unpause", id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRerollBeforeEndConflicts(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/giveaways/%s/reroll", id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteGiveaway(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	rec := api.do(t, http.MethodDelete, "/api/v1/giveaways/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/giveaways/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, ok := api.chat.Display(id)
	assert.False(t, ok)
}

func TestEditGiveaway(t *testing.T) {
	api := newTestAPI()
	id := api.startGiveaway(t)

	newPrize := "Steam key"
	rec := api.do(t, http.MethodPatch, "/api/v1/giveaways/"+id, models.GiveawayEdit{NewPrize: &newPrize})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Giveaway models.Giveaway `json:"giveaway"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Steam key", resp.Giveaway.Prize)
}
