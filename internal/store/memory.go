package store

import (
	"sync"
	"time"

	"stockwatch/internal/model"
)

// MemoryStore is an in-memory Store used when SQLite is not available
// and as the backing store in tests.
type MemoryStore struct {
	mu         sync.Mutex
	alerts     []model.Alert
	watchlists []model.Watchlist
	items      []model.WatchlistItem
	portfolio  []model.PortfolioItem
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) ListAlerts() ([]model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out, nil
}

func (m *MemoryStore) InsertAlert(a *model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append([]model.Alert{*a}, m.alerts...)
	return nil
}

func (m *MemoryStore) UpdateAlert(a *model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == a.ID {
			m.alerts[i] = *a
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteAlert(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) PruneTriggeredAlerts(before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.alerts[:0]
	pruned := 0
	for _, a := range m.alerts {
		if a.IsTriggered && a.TriggeredAt != nil && a.TriggeredAt.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept
	return pruned, nil
}

func (m *MemoryStore) ListWatchlists() ([]model.Watchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Watchlist, len(m.watchlists))
	for i, w := range m.watchlists {
		out[i] = copyWatchlist(w)
	}
	return out, nil
}

func (m *MemoryStore) GetWatchlist(id string) (*model.Watchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.watchlists {
		if w.ID == id {
			cp := copyWatchlist(w)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) InsertWatchlist(w *model.Watchlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.IsDefault {
		for i := range m.watchlists {
			m.watchlists[i].IsDefault = false
		}
	}
	m.watchlists = append(m.watchlists, copyWatchlist(*w))
	return nil
}

func (m *MemoryStore) DeleteWatchlist(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.watchlists {
		if m.watchlists[i].ID == id {
			m.watchlists = append(m.watchlists[:i], m.watchlists[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) SetDefaultWatchlist(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for i := range m.watchlists {
		m.watchlists[i].IsDefault = m.watchlists[i].ID == id
		if m.watchlists[i].ID == id {
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) UpsertStock(watchlistID string, e *model.StockEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.watchlists {
		if m.watchlists[i].ID != watchlistID {
			continue
		}
		for j := range m.watchlists[i].Stocks {
			if m.watchlists[i].Stocks[j].Symbol == e.Symbol {
				m.watchlists[i].Stocks[j].TargetPrice = e.TargetPrice
				m.watchlists[i].Stocks[j].AlertPrice = e.AlertPrice
				m.watchlists[i].Stocks[j].IsAlertEnabled = e.IsAlertEnabled
				return nil
			}
		}
		m.watchlists[i].Stocks = append(m.watchlists[i].Stocks, *e)
		return nil
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteStock(watchlistID, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.watchlists {
		if m.watchlists[i].ID != watchlistID {
			continue
		}
		stocks := m.watchlists[i].Stocks
		for j := range stocks {
			if stocks[j].Symbol == symbol {
				m.watchlists[i].Stocks = append(stocks[:j], stocks[j+1:]...)
				return nil
			}
		}
		return ErrNotFound
	}
	return ErrNotFound
}

func (m *MemoryStore) ListWatchlistItems() ([]model.WatchlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.WatchlistItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *MemoryStore) InsertWatchlistItem(it *model.WatchlistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *it)
	return nil
}

func (m *MemoryStore) UpdateWatchlistItem(it *model.WatchlistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == it.ID {
			m.items[i] = *it
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteWatchlistItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListPortfolio() ([]model.PortfolioItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PortfolioItem, len(m.portfolio))
	copy(out, m.portfolio)
	return out, nil
}

func (m *MemoryStore) InsertPortfolioItem(it *model.PortfolioItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolio = append(m.portfolio, *it)
	return nil
}

func (m *MemoryStore) DeletePortfolioItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.portfolio {
		if m.portfolio[i].ID == id {
			m.portfolio = append(m.portfolio[:i], m.portfolio[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) Maintain() error { return nil }
func (m *MemoryStore) Close() error    { return nil }

func copyWatchlist(w model.Watchlist) model.Watchlist {
	cp := w
	cp.Stocks = make([]model.StockEntry, len(w.Stocks))
	copy(cp.Stocks, w.Stocks)
	return cp
}
