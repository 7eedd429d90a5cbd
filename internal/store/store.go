package store

import (
	"errors"
	"time"

	"stockwatch/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store persists alerts, watchlists and portfolio items. Each entity is
// owned by exactly one component: the alert engine owns alert rows, the
// watchlist sync owns watchlist and stock rows.
type Store interface {
	ListAlerts() ([]model.Alert, error)
	InsertAlert(a *model.Alert) error
	UpdateAlert(a *model.Alert) error
	DeleteAlert(id string) error
	// PruneTriggeredAlerts deletes triggered alerts whose trigger time is
	// before the cutoff. Returns the number of rows removed.
	PruneTriggeredAlerts(before time.Time) (int, error)

	ListWatchlists() ([]model.Watchlist, error)
	GetWatchlist(id string) (*model.Watchlist, error)
	InsertWatchlist(w *model.Watchlist) error
	DeleteWatchlist(id string) error
	// SetDefaultWatchlist marks one watchlist default and clears the flag
	// on every other watchlist in the same operation.
	SetDefaultWatchlist(id string) error
	UpsertStock(watchlistID string, e *model.StockEntry) error
	DeleteStock(watchlistID, symbol string) error

	ListWatchlistItems() ([]model.WatchlistItem, error)
	InsertWatchlistItem(it *model.WatchlistItem) error
	UpdateWatchlistItem(it *model.WatchlistItem) error
	DeleteWatchlistItem(id string) error

	ListPortfolio() ([]model.PortfolioItem, error)
	InsertPortfolioItem(it *model.PortfolioItem) error
	DeletePortfolioItem(id string) error

	// Maintain performs storage housekeeping (vacuum for SQLite).
	Maintain() error
	Close() error
}
