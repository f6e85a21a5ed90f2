package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/deals-backend/internal/config"
	"github.com/ignatzorin/deals-backend/internal/infrastructure/authz"
	"github.com/ignatzorin/deals-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/deals-backend/internal/interface/http/handler"
	"github.com/ignatzorin/deals-backend/internal/logger"
	"github.com/ignatzorin/deals-backend/internal/service"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
	"github.com/ignatzorin/deals-backend/internal/usecase/negotiation"
	"github.com/ignatzorin/deals-backend/internal/usecase/proposal"
	"github.com/ignatzorin/deals-backend/internal/usecase/settlement"
	"github.com/ignatzorin/deals-backend/internal/ws"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiEnv struct {
	engine    *gin.Engine
	tokens    *service.TokenManager
	publisher uuid.UUID
	buyer     uuid.UUID
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Silence()

	store := memory.NewStore()
	env := &apiEnv{
		tokens:    service.NewTokenManager("router-test-secret-0123456789abcdef", time.Hour),
		publisher: uuid.New(),
		buyer:     uuid.New(),
	}
	store.AddSections(env.publisher, 1, 2, 3)
	store.AddBuyer(env.buyer, "dsp-buyer")

	negotiationLC := negotiation.NewLifecycle(store, store.Proposals(), store.Negotiations())
	proposalLC := proposal.NewLifecycle(store, store.Proposals(), store.Directory(), negotiationLC)
	settlementLC := settlement.NewLifecycle(store.Proposals(), store.Deals(), store.Directory())
	hub := ws.NewHub()
	orchestrator := deal.NewOrchestrator(store, store.Negotiations(), proposalLC, negotiationLC, settlementLC, hub)

	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"https://deals.example"},
		RateLimitLimit:  1000,
		RateLimitPeriod: time.Minute,
		RequestTimeout:  time.Second,
	}
	env.engine = SetupRouter(cfg, Handlers{
		Proposals:    handler.NewProposalHandler(orchestrator, proposalLC, proposal.NewImporter(orchestrator.CreateProposal), 1<<20),
		Negotiations: handler.NewNegotiationHandler(orchestrator, negotiationLC),
		Deals:        handler.NewDealHandler(orchestrator, settlementLC),
		Health:       handler.NewHealthHandler(store.Ping, time.Second),
		WS:           handler.NewWSHandler(hub, env.tokens, cfg.AllowedOrigins),
		Tokens:       env.tokens,
		Authorizer:   authz.NewStoreAuthorizer(store.Proposals(), store.Negotiations(), store.Deals()),
	})
	return env
}

func (e *apiEnv) do(t *testing.T, method, path string, userID uuid.UUID, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		token, err := e.tokens.GenerateAccess(userID, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type idView struct {
	ID uuid.UUID `json:"id"`
}

type negotiationView struct {
	ID            uuid.UUID `json:"id"`
	Turn          string    `json:"turn"`
	OwnerStatus   string    `json:"owner_status"`
	PartnerStatus string    `json:"partner_status"`
	Version       int64     `json:"version"`
}

type dealView struct {
	ID         uuid.UUID       `json:"id"`
	Rate       decimal.Decimal `json:"rate"`
	Status     string          `json:"status"`
	ExternalID string          `json:"external_id"`
	DSPID      string          `json:"dsp_id"`
}

type submitView struct {
	Negotiation negotiationView `json:"negotiation"`
	Created     bool            `json:"created"`
	Deal        *dealView       `json:"deal"`
}

func TestAPI_NegotiationToSettledDeal(t *testing.T) {
	env := newAPIEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/proposals", env.publisher, map[string]any{
		"name":         "Homepage takeover",
		"price":        "10.50",
		"auction_type": "fixed",
		"section_ids":  []int64{1, 2},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	proposalID := decode[idView](t, resp.Data).ID
	negotiationPath := "/api/proposals/" + proposalID.String() + "/negotiations/" + env.buyer.String()

	w, resp = env.do(t, http.MethodPut, negotiationPath, env.buyer, map[string]any{
		"position": "active",
		"price":    "9.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opened := decode[submitView](t, resp.Data)
	assert.True(t, opened.Created)
	assert.Equal(t, "awaiting_publisher", opened.Negotiation.Turn)

	w, resp = env.do(t, http.MethodPut, negotiationPath, env.publisher, map[string]any{"position": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[submitView](t, resp.Data).Deal)

	w, resp = env.do(t, http.MethodPut, negotiationPath, env.buyer, map[string]any{"position": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settled := decode[submitView](t, resp.Data)
	require.NotNil(t, settled.Deal)
	assert.True(t, settled.Deal.Rate.Equal(decimal.RequireFromString("9")))
	assert.Equal(t, "active", settled.Deal.Status)
	assert.Equal(t, "dsp-buyer", settled.Deal.DSPID)
	assert.True(t, strings.HasPrefix(settled.Deal.ExternalID, "PMP-"))

	w, resp = env.do(t, http.MethodPost, "/api/negotiations/"+settled.Negotiation.ID.String()+"/settle", env.buyer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, settled.Deal.ID, decode[dealView](t, resp.Data).ID)

	w, _ = env.do(t, http.MethodPost, "/api/negotiations/"+settled.Negotiation.ID.String()+"/settle", uuid.New(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	dealPath := "/api/deals/" + settled.Deal.ID.String() + "/status"
	w, resp = env.do(t, http.MethodPut, dealPath, env.buyer, map[string]any{"status": "paused"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	w, resp = env.do(t, http.MethodPut, dealPath, env.publisher, map[string]any{"status": "paused"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "paused", decode[dealView](t, resp.Data).Status)

	w, resp = env.do(t, http.MethodDelete, "/api/proposals/"+proposalID.String(), env.publisher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deleted := decode[struct {
		Negotiations []negotiationView `json:"negotiations"`
	}](t, resp.Data)
	assert.Empty(t, deleted.Negotiations)

	w, resp = env.do(t, http.MethodGet, "/api/deals", env.publisher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	deals := decode[[]dealView](t, resp.Data)
	require.Len(t, deals, 1)
	assert.Equal(t, "paused", deals[0].Status)
}

func TestAPI_DeleteClosesOpenNegotiations(t *testing.T) {
	env := newAPIEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/proposals", env.publisher, map[string]any{
		"name": "Sports section", "price": 4, "auction_type": "first", "section_ids": []int64{3},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	proposalID := decode[idView](t, resp.Data).ID

	w, _ = env.do(t, http.MethodPut, "/api/proposals/"+proposalID.String()+"/negotiations/"+env.buyer.String(),
		env.buyer, map[string]any{"position": "active"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = env.do(t, http.MethodDelete, "/api/proposals/"+proposalID.String(), env.buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = env.do(t, http.MethodDelete, "/api/proposals/"+proposalID.String(), env.publisher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deleted := decode[struct {
		Negotiations []negotiationView `json:"negotiations"`
	}](t, resp.Data)
	require.Len(t, deleted.Negotiations, 1)
	assert.Equal(t, "deleted", deleted.Negotiations[0].OwnerStatus)

	w, resp = env.do(t, http.MethodGet, "/api/proposals/"+proposalID.String(), env.buyer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestAPI_StaleVersionIsConflict(t *testing.T) {
	env := newAPIEnv(t)

	_, resp := env.do(t, http.MethodPost, "/api/proposals", env.publisher, map[string]any{
		"name": "Video preroll", "price": "3.25", "auction_type": "second", "section_ids": []int64{1},
	})
	proposalID := decode[idView](t, resp.Data).ID
	path := "/api/proposals/" + proposalID.String() + "/negotiations/" + env.buyer.String()

	_, resp = env.do(t, http.MethodPut, path, env.buyer, map[string]any{"position": "active"})
	version := decode[submitView](t, resp.Data).Negotiation.Version

	stale := version - 1
	w, resp := env.do(t, http.MethodPut, path, env.publisher, map[string]any{
		"position": "active", "price": "3.50", "expected_version": stale,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

func TestAPI_RequestValidation(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   uuid.UUID
		body   any
		status int
	}{
		{"missing token", http.MethodGet, "/api/proposals", uuid.Nil, nil, http.StatusUnauthorized},
		{"malformed id", http.MethodGet, "/api/proposals/not-a-uuid", env.publisher, nil, http.StatusBadRequest},
		{"malformed buyer id", http.MethodPut, "/api/proposals/" + uuid.NewString() + "/negotiations/x", env.buyer,
			map[string]any{"position": "active"}, http.StatusBadRequest},
		{"unknown position", http.MethodPut, "/api/proposals/" + uuid.NewString() + "/negotiations/" + env.buyer.String(),
			env.buyer, map[string]any{"position": "maybe"}, http.StatusBadRequest},
		{"unknown section", http.MethodPost, "/api/proposals", env.publisher, map[string]any{
			"name": "x", "price": "1", "auction_type": "fixed", "section_ids": []int64{42},
		}, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/proposals", env.publisher, map[string]any{
			"name": "x", "price": "1", "auction_type": "fixed", "section_ids": []int64{1}, "end_date": "tomorrow",
		}, http.StatusBadRequest},
		{"unknown deal", http.MethodGet, "/api/deals/" + uuid.NewString(), env.publisher, nil, http.StatusNotFound},
		{"status of unknown deal", http.MethodPut, "/api/deals/" + uuid.NewString() + "/status", env.publisher,
			map[string]any{"status": "paused"}, http.StatusNotFound},
		{"delete unknown proposal", http.MethodDelete, "/api/proposals/" + uuid.NewString(), env.publisher, nil, http.StatusNotFound},
		{"withdraw with position status", http.MethodPut, "/api/negotiations/" + uuid.NewString() + "/status",
			env.buyer, map[string]any{"status": "accepted"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, resp.Success)
		})
	}
}

func TestAPI_Infrastructure(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.do(t, http.MethodGet, "/health", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/metrics", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/proposals", env.buyer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", w.Header().Get("X-RateLimit-Limit"))

	req := httptest.NewRequest(http.MethodOptions, "/api/proposals", nil)
	req.Header.Set("Origin", "https://deals.example")
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://deals.example", rec.Header().Get("Access-Control-Allow-Origin"))

	w, _ = env.do(t, http.MethodGet, "/api/ws", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
