package watchlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"stockwatch/internal/model"
	"stockwatch/internal/notify"
	"stockwatch/internal/poller"
	"stockwatch/internal/quote"
	"stockwatch/internal/store"
)

// Summary aggregates the loaded watchlists for the header display.
type Summary struct {
	Watchlists    int     `json:"watchlists"`
	TotalStocks   int     `json:"total_stocks"`
	AlertsEnabled int     `json:"alerts_enabled"`
	MeanChangePct float64 `json:"mean_change_percent"`
	StdevChange   float64 `json:"stdev_change_percent"`
}

// Sync loads the watchlist collection, tracks the current selection,
// paginates its stock rows and keeps displayed prices fresh.
type Sync struct {
	mu         sync.Mutex
	store      store.Store
	source     quote.Source
	hub        *notify.Hub
	watchlists []model.Watchlist
	currentID  string
	empty      bool
	page       Pagination

	// lastIssued tracks the newest refresh cycle per watchlist id so an
	// older response cannot overwrite a newer one.
	lastIssued map[string]uint64
	seq        uint64

	refetchDelay time.Duration
	refetchTimer *time.Timer

	poll *poller.Poller
}

// NewSync wires a watchlist sync. interval drives the auto-refresh of the
// selected watchlist; refetchDelay is the eventual-consistency window after
// a broker sync.
func NewSync(st store.Store, src quote.Source, hub *notify.Hub, pageSize int, interval, refetchDelay time.Duration) *Sync {
	s := &Sync{
		store:        st,
		source:       src,
		hub:          hub,
		page:         NewPagination(pageSize),
		lastIssued:   make(map[string]uint64),
		refetchDelay: refetchDelay,
	}
	s.poll = poller.New("watchlist", interval, s.refresh)
	return s
}

// Start loads the watchlists and begins the auto-refresh poll.
func (s *Sync) Start(ctx context.Context) {
	if err := s.LoadWatchlists(ctx); err != nil {
		log.Errorf("initial watchlist load: %v", err)
	}
	s.poll.Start(ctx)
}

// Stop cancels the poll and any pending post-sync re-fetch.
func (s *Sync) Stop() {
	s.poll.Stop()
	s.mu.Lock()
	if s.refetchTimer != nil {
		s.refetchTimer.Stop()
	}
	s.mu.Unlock()
}

// LoadWatchlists fetches every watchlist, selects the default (else the
// first) and recomputes the summary. An empty set flags the empty state.
// A fetch failure leaves prior state intact.
func (s *Sync) LoadWatchlists(_ context.Context) error {
	lists, err := s.store.ListWatchlists()
	if err != nil {
		log.Errorf("load watchlists: %v", err)
		s.hub.Toastf("error", "could not load watchlists: %v", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.watchlists = lists
	if len(lists) == 0 {
		s.empty = true
		s.currentID = ""
		s.page.SetTotal(0)
		return nil
	}
	s.empty = false

	selected := lists[0].ID
	for i := range lists {
		if lists[i].IsDefault {
			selected = lists[i].ID
			break
		}
	}
	if s.currentID != selected {
		s.currentID = selected
		s.page = NewPagination(s.page.PageSize)
	}
	s.page.SetTotal(len(s.currentLocked().Stocks))
	return nil
}

// LoadDetails fetches one watchlist's full stock list and replaces the
// cached copy wholesale, resetting pagination to page 1. A failure leaves
// the prior copy intact.
func (s *Sync) LoadDetails(ctx context.Context, id string) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.lastIssued[id] = seq
	s.mu.Unlock()

	w, err := s.store.GetWatchlist(id)
	if err != nil {
		log.Errorf("load watchlist %s: %v", id, err)
		s.hub.Toastf("error", "could not refresh watchlist: %v", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastIssued[id] > seq {
		log.Warnf("discarding stale details for watchlist %s", id)
		return nil
	}

	replaced := false
	for i := range s.watchlists {
		if s.watchlists[i].ID == id {
			s.watchlists[i] = *w
			replaced = true
			break
		}
	}
	if !replaced {
		s.watchlists = append(s.watchlists, *w)
	}

	s.currentID = id
	s.page.CurrentPage = 1
	s.page.SetTotal(len(w.Stocks))
	return nil
}

// refresh is the auto-refresh poll cycle: re-fetch the selected watchlist.
func (s *Sync) refresh(ctx context.Context, _ uint64) {
	s.mu.Lock()
	id := s.currentID
	s.mu.Unlock()
	if id == "" {
		return
	}
	if err := s.LoadDetails(ctx, id); err != nil {
		log.Warnf("auto-refresh: %v", err)
	}
}

// BrokerSync requests a batch quote update for every symbol in the current
// watchlist, patches the rows, and schedules a detail re-fetch after the
// consistency window so server-side processing can land.
func (s *Sync) BrokerSync(ctx context.Context) error {
	s.mu.Lock()
	id := s.currentID
	var symbols []string
	if cur := s.currentLocked(); cur != nil {
		for i := range cur.Stocks {
			symbols = append(symbols, cur.Stocks[i].Symbol)
		}
	}
	s.mu.Unlock()

	if id == "" {
		return fmt.Errorf("no watchlist selected")
	}
	if len(symbols) == 0 {
		return nil
	}

	quotes := s.source.Quotes(ctx, symbols)
	if len(quotes) == 0 {
		s.hub.Toastf("error", "broker sync returned no quotes")
		return fmt.Errorf("broker sync: no quotes for %d symbols", len(symbols))
	}
	s.ApplyQuotes(quotes)

	s.mu.Lock()
	if s.refetchTimer != nil {
		s.refetchTimer.Stop()
	}
	s.refetchTimer = time.AfterFunc(s.refetchDelay, func() {
		if err := s.LoadDetails(context.Background(), id); err != nil {
			log.Warnf("post-sync re-fetch: %v", err)
		}
	})
	s.mu.Unlock()

	log.Infof("broker sync applied %d/%d quotes for watchlist %s", len(quotes), len(symbols), id)
	return nil
}

// ApplyQuotes patches only the matching rows' price fields in the current
// watchlist; rows without a quote are untouched.
func (s *Sync) ApplyQuotes(quotes map[string]model.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked()
	if cur == nil {
		return
	}
	for i := range cur.Stocks {
		row := &cur.Stocks[i]
		q, ok := quotes[quote.NormalizeSymbol(row.Symbol)]
		if !ok {
			continue
		}
		row.CurrentPrice = q.Price
		row.PriceChange = q.Change
		row.PriceChangePercent = q.ChangePercent
	}
}

// Watchlists returns a copy of the loaded collection.
func (s *Sync) Watchlists() []model.Watchlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Watchlist, len(s.watchlists))
	copy(out, s.watchlists)
	return out
}

// Current returns a copy of the selected watchlist, or nil in the empty
// state.
func (s *Sync) Current() *model.Watchlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.currentLocked()
	if cur == nil {
		return nil
	}
	cp := *cur
	cp.Stocks = make([]model.StockEntry, len(cur.Stocks))
	copy(cp.Stocks, cur.Stocks)
	return &cp
}

// Empty reports the empty-state condition.
func (s *Sync) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.empty
}

// Page returns the current pagination state.
func (s *Sync) Page() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// GoToPage navigates; out-of-range or same-page requests are no-ops.
func (s *Sync) GoToPage(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.GoToPage(n)
}

// SetPageSize changes the page size and resets to page 1.
func (s *Sync) SetPageSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page.SetPageSize(size)
}

// PageStocks returns the rows of the current page.
func (s *Sync) PageStocks() []model.StockEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked()
	if cur == nil {
		return nil
	}
	start, end := s.page.Bounds()
	out := make([]model.StockEntry, end-start)
	copy(out, cur.Stocks[start:end])
	return out
}

// Summarize aggregates counts across all watchlists plus change statistics
// for the current page.
func (s *Sync) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{Watchlists: len(s.watchlists)}
	for i := range s.watchlists {
		sum.TotalStocks += len(s.watchlists[i].Stocks)
		sum.AlertsEnabled += s.watchlists[i].AlertEnabledCount()
	}

	cur := s.currentLocked()
	if cur == nil {
		return sum
	}
	start, end := s.page.Bounds()
	var changes []float64
	for _, e := range cur.Stocks[start:end] {
		if e.CurrentPrice > 0 {
			changes = append(changes, e.PriceChangePercent)
		}
	}
	if len(changes) > 0 {
		sum.MeanChangePct, _ = stats.Mean(changes)
		sum.StdevChange, _ = stats.StandardDeviation(changes)
	}
	return sum
}

// currentLocked returns the selected watchlist. Callers hold s.mu.
func (s *Sync) currentLocked() *model.Watchlist {
	if s.currentID == "" {
		return nil
	}
	for i := range s.watchlists {
		if s.watchlists[i].ID == s.currentID {
			return &s.watchlists[i]
		}
	}
	return nil
}
