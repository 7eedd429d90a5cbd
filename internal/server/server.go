package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"stockwatch/internal/alert"
	"stockwatch/internal/model"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	"stockwatch/internal/store"
	"stockwatch/internal/watchlist"
)

// Server exposes the store and engines over a JSON REST API.
type Server struct {
	store  store.Store
	engine *alert.Engine
	sync   *watchlist.Sync
	source quote.Source
	toasts *notify.ToastNotifier
	http   *http.Server
}

// New builds a server listening on addr.
func New(addr string, st store.Store, eng *alert.Engine, ws *watchlist.Sync, src quote.Source, toasts *notify.ToastNotifier) *Server {
	s := &Server{store: st, engine: eng, sync: ws, source: src, toasts: toasts}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAddAlert).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}", s.handleEditAlert).Methods(http.MethodPut)
	api.HandleFunc("/alerts/{id}", s.handleDeleteAlert).Methods(http.MethodDelete)

	api.HandleFunc("/watchlists", s.handleListWatchlists).Methods(http.MethodGet)
	api.HandleFunc("/watchlists", s.handleCreateWatchlist).Methods(http.MethodPost)
	api.HandleFunc("/watchlists/{id}", s.handleGetWatchlist).Methods(http.MethodGet)
	api.HandleFunc("/watchlists/{id}", s.handleDeleteWatchlist).Methods(http.MethodDelete)
	api.HandleFunc("/watchlists/{id}/default", s.handleSetDefault).Methods(http.MethodPut)
	api.HandleFunc("/watchlists/{id}/stocks", s.handleUpsertStock).Methods(http.MethodPost)
	api.HandleFunc("/watchlists/{id}/stocks/{symbol}", s.handleDeleteStock).Methods(http.MethodDelete)
	api.HandleFunc("/watchlists/{id}/sync", s.handleBrokerSync).Methods(http.MethodPost)
	api.HandleFunc("/watchlists/{id}/page", s.handlePage).Methods(http.MethodPost)

	api.HandleFunc("/portfolio", s.handleListPortfolio).Methods(http.MethodGet)
	api.HandleFunc("/portfolio", s.handleAddPortfolio).Methods(http.MethodPost)
	api.HandleFunc("/portfolio/{id}", s.handleDeletePortfolio).Methods(http.MethodDelete)

	api.HandleFunc("/quotes", s.handleQuotes).Methods(http.MethodGet)
	api.HandleFunc("/notifications", s.handleNotifications).Methods(http.MethodGet)

	return r
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		log.Infof("http server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Sorted())
}

type alertRequest struct {
	Symbol      string  `json:"symbol"`
	TargetPrice float64 `json:"target_price"`
	Condition   string  `json:"condition"`
	Notes       string  `json:"notes"`
}

func (s *Server) handleAddAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	a, err := s.engine.Add(req.Symbol, req.TargetPrice, model.AlertCondition(req.Condition), req.Notes)
	switch {
	case errors.Is(err, alert.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, alert.ErrInvalidPrice), errors.Is(err, alert.ErrInvalidCondition):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, a)
	}
}

func (s *Server) handleEditAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := s.engine.Edit(mux.Vars(r)["id"], req.TargetPrice, model.AlertCondition(req.Condition))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, alert.ErrInvalidPrice), errors.Is(err, alert.ErrInvalidCondition):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	// Destructive actions need an explicit confirmation from the client.
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "confirmation required: pass ?confirm=true")
		return
	}
	err := s.engine.Delete(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, alert.ErrNotConfirmed):
		writeError(w, http.StatusForbidden, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func (s *Server) handleListWatchlists(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"watchlists": s.sync.Watchlists(),
		"summary":    s.sync.Summarize(),
		"empty":      s.sync.Empty(),
	})
}

type watchlistRequest struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func (s *Server) handleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	wl := model.Watchlist{ID: uuid.NewString(), Name: req.Name, IsDefault: req.IsDefault}
	if err := s.store.InsertWatchlist(&wl); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.sync.LoadWatchlists(r.Context()); err != nil {
		log.Warnf("reload watchlists after create: %v", err)
	}
	writeJSON(w, http.StatusCreated, wl)
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.sync.LoadDetails(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"watchlist": s.sync.Current(),
		"page":      s.sync.Page(),
		"stocks":    s.sync.PageStocks(),
	})
}

func (s *Server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteWatchlist(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.sync.LoadWatchlists(r.Context()); err != nil {
		log.Warnf("reload watchlists after delete: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	if err := s.store.SetDefaultWatchlist(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.sync.LoadWatchlists(r.Context()); err != nil {
		log.Warnf("reload watchlists after default change: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type stockRequest struct {
	Symbol         string  `json:"symbol"`
	TargetPrice    float64 `json:"target_price"`
	AlertPrice     float64 `json:"alert_price"`
	IsAlertEnabled bool    `json:"is_alert_enabled"`
}

func (s *Server) handleUpsertStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	e := model.StockEntry{
		ID:             uuid.NewString(),
		Symbol:         quote.NormalizeSymbol(req.Symbol),
		TargetPrice:    req.TargetPrice,
		AlertPrice:     req.AlertPrice,
		IsAlertEnabled: req.IsAlertEnabled,
	}
	if err := s.store.UpsertStock(mux.Vars(r)["id"], &e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.store.DeleteStock(vars["id"], quote.NormalizeSymbol(vars["symbol"])); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stock not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleBrokerSync(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.sync.LoadDetails(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "watchlist not found")
		return
	}
	if err := s.sync.BrokerSync(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync scheduled"})
}

type pageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.PageSize > 0 {
		s.sync.SetPageSize(req.PageSize)
	}
	if req.Page > 0 {
		s.sync.GoToPage(req.Page)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":   s.sync.Page(),
		"stocks": s.sync.PageStocks(),
	})
}

func (s *Server) handleListPortfolio(w http.ResponseWriter, _ *http.Request) {
	items, err := s.store.ListPortfolio()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type portfolioRequest struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AvgBuyPrice float64 `json:"avg_buy_price"`
	Notes       string  `json:"notes"`
}

func (s *Server) handleAddPortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	it := model.PortfolioItem{
		ID:          uuid.NewString(),
		Symbol:      quote.NormalizeSymbol(req.Symbol),
		Quantity:    req.Quantity,
		AvgBuyPrice: req.AvgBuyPrice,
		Notes:       req.Notes,
	}
	if err := s.store.InsertPortfolioItem(&it); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePortfolioItem(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "portfolio item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	symbols := strings.Split(raw, ",")
	writeJSON(w, http.StatusOK, s.source.Quotes(r.Context(), symbols))
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.toasts.Recent())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
