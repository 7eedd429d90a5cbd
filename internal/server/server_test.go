package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/alert"
	"stockwatch/internal/model"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	"stockwatch/internal/store"
	"stockwatch/internal/watchlist"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	src := quote.NewMockSource()
	hub := notify.NewHub()
	toasts, err := notify.NewToastNotifier(hub, 50)
	require.NoError(t, err)

	eng := alert.NewEngine(st, src, hub, nil, time.Minute)
	eng.Load(context.Background())
	ws := watchlist.NewSync(st, src, hub, 25, time.Minute, 10*time.Millisecond)
	require.NoError(t, ws.LoadWatchlists(context.Background()))

	return New(":0", st, eng, ws, src, toasts), st
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestAlertEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/alerts", map[string]interface{}{
		"symbol": "TCS", "target_price": 3500, "condition": "above",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "TCS", created.Symbol)

	// Duplicate rule conflicts.
	rec = do(t, s, http.MethodPost, "/api/alerts", map[string]interface{}{
		"symbol": "TCS", "target_price": 3500, "condition": "above",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Invalid price rejected before persistence.
	rec = do(t, s, http.MethodPost, "/api/alerts", map[string]interface{}{
		"symbol": "TCS", "target_price": -1, "condition": "above",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []model.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 1)

	rec = do(t, s, http.MethodPut, "/api/alerts/"+created.ID, map[string]interface{}{
		"target_price": 3600, "condition": "below",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Deletes need explicit confirmation.
	rec = do(t, s, http.MethodDelete, "/api/alerts/"+created.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/alerts/"+created.ID+"?confirm=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/alerts/"+created.ID+"?confirm=true", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatchlistEndpoints(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/watchlists", map[string]interface{}{
		"name": "Tech", "is_default": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var wl model.Watchlist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wl))

	rec = do(t, s, http.MethodPost, "/api/watchlists/"+wl.ID+"/stocks", map[string]interface{}{
		"symbol": "NSE:TCS-EQ", "is_alert_enabled": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/watchlists/"+wl.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Stocks []model.StockEntry   `json:"stocks"`
		Page   watchlist.Pagination `json:"page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Stocks, 1)
	assert.Equal(t, "TCS", detail.Stocks[0].Symbol, "stock symbols are normalized on the way in")
	assert.Equal(t, 1, detail.Page.CurrentPage)

	rec = do(t, s, http.MethodGet, "/api/watchlists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Empty   bool              `json:"empty"`
		Summary watchlist.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.False(t, list.Empty)
	assert.Equal(t, 1, list.Summary.AlertsEnabled)

	rec = do(t, s, http.MethodGet, "/api/watchlists/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Stocks persisted through the API land in the store.
	got, err := st.GetWatchlist(wl.ID)
	require.NoError(t, err)
	assert.Len(t, got.Stocks, 1)
}

func TestQuoteAndNotificationEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/quotes?symbols=TCS,INFY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quotes map[string]model.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	assert.Len(t, quotes, 2)

	rec = do(t, s, http.MethodGet, "/api/quotes", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/notifications", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
