package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"stockwatch/internal/model"
)

// SQLiteStore persists entities to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the HTTP handlers can read while pollers write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id           TEXT PRIMARY KEY,
			symbol       TEXT NOT NULL,
			target_price REAL NOT NULL,
			condition    TEXT NOT NULL,
			is_triggered INTEGER NOT NULL DEFAULT 0,
			created_at   INTEGER NOT NULL,
			triggered_at INTEGER,
			notes        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol)`,

		`CREATE TABLE IF NOT EXISTS watchlists (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS watchlist_stocks (
			id               TEXT PRIMARY KEY,
			watchlist_id     TEXT NOT NULL,
			symbol           TEXT NOT NULL,
			target_price     REAL,
			alert_price      REAL,
			is_alert_enabled INTEGER NOT NULL DEFAULT 0,
			position         INTEGER NOT NULL DEFAULT 0,
			UNIQUE(watchlist_id, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_watchlist ON watchlist_stocks(watchlist_id)`,

		`CREATE TABLE IF NOT EXISTS watchlist_items (
			id            TEXT PRIMARY KEY,
			symbol        TEXT NOT NULL,
			quantity      REAL,
			avg_buy_price REAL,
			notes         TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS portfolio_items (
			id            TEXT PRIMARY KEY,
			symbol        TEXT NOT NULL,
			quantity      REAL,
			avg_buy_price REAL,
			notes         TEXT
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListAlerts() ([]model.Alert, error) {
	rows, err := s.db.Query(`SELECT id, symbol, target_price, condition, is_triggered, created_at, triggered_at, notes
		FROM alerts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		var createdAt int64
		var triggeredAt sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&a.ID, &a.Symbol, &a.TargetPrice, &a.Condition, &a.IsTriggered, &createdAt, &triggeredAt, &notes); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		if triggeredAt.Valid {
			t := time.Unix(triggeredAt.Int64, 0)
			a.TriggeredAt = &t
		}
		a.Notes = notes.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) InsertAlert(a *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO alerts
		(id, symbol, target_price, condition, is_triggered, created_at, triggered_at, notes)
		VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.Symbol, a.TargetPrice, string(a.Condition), a.IsTriggered,
		a.CreatedAt.Unix(), triggeredAtUnix(a), a.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateAlert(a *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE alerts
		SET symbol=?, target_price=?, condition=?, is_triggered=?, triggered_at=?, notes=?
		WHERE id=?`,
		a.Symbol, a.TargetPrice, string(a.Condition), a.IsTriggered, triggeredAtUnix(a), a.Notes, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteAlert(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM alerts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) PruneTriggeredAlerts(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM alerts WHERE is_triggered=1 AND triggered_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) ListWatchlists() ([]model.Watchlist, error) {
	rows, err := s.db.Query(`SELECT id, name, is_default FROM watchlists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list watchlists: %w", err)
	}
	defer rows.Close()

	var lists []model.Watchlist
	for rows.Next() {
		var w model.Watchlist
		if err := rows.Scan(&w.ID, &w.Name, &w.IsDefault); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		lists = append(lists, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range lists {
		stocks, err := s.listStocks(lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Stocks = stocks
	}
	return lists, nil
}

func (s *SQLiteStore) GetWatchlist(id string) (*model.Watchlist, error) {
	var w model.Watchlist
	err := s.db.QueryRow(`SELECT id, name, is_default FROM watchlists WHERE id=?`, id).
		Scan(&w.ID, &w.Name, &w.IsDefault)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get watchlist: %w", err)
	}
	stocks, err := s.listStocks(id)
	if err != nil {
		return nil, err
	}
	w.Stocks = stocks
	return &w, nil
}

func (s *SQLiteStore) listStocks(watchlistID string) ([]model.StockEntry, error) {
	rows, err := s.db.Query(`SELECT id, symbol, target_price, alert_price, is_alert_enabled
		FROM watchlist_stocks WHERE watchlist_id=? ORDER BY position, symbol`, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []model.StockEntry
	for rows.Next() {
		var e model.StockEntry
		var target, alert sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.Symbol, &target, &alert, &e.IsAlertEnabled); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		e.TargetPrice = target.Float64
		e.AlertPrice = alert.Float64
		stocks = append(stocks, e)
	}
	return stocks, rows.Err()
}

func (s *SQLiteStore) InsertWatchlist(w *model.Watchlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if w.IsDefault {
		if _, err := tx.Exec(`UPDATE watchlists SET is_default=0`); err != nil {
			return fmt.Errorf("clear default: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO watchlists (id, name, is_default) VALUES (?,?,?)`,
		w.ID, w.Name, w.IsDefault); err != nil {
		return fmt.Errorf("insert watchlist: %w", err)
	}
	for i := range w.Stocks {
		e := &w.Stocks[i]
		if _, err := tx.Exec(`INSERT INTO watchlist_stocks
			(id, watchlist_id, symbol, target_price, alert_price, is_alert_enabled, position)
			VALUES (?,?,?,?,?,?,?)`,
			e.ID, w.ID, e.Symbol, e.TargetPrice, e.AlertPrice, e.IsAlertEnabled, i); err != nil {
			return fmt.Errorf("insert stock: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteWatchlist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM watchlists WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete watchlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM watchlist_stocks WHERE watchlist_id=?`, id); err != nil {
		return fmt.Errorf("delete stocks: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetDefaultWatchlist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE watchlists SET is_default=0`); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}
	res, err := tx.Exec(`UPDATE watchlists SET is_default=1 WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertStock(watchlistID string, e *model.StockEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO watchlist_stocks
		(id, watchlist_id, symbol, target_price, alert_price, is_alert_enabled, position)
		VALUES (?,?,?,?,?,?,
			(SELECT COALESCE(MAX(position)+1, 0) FROM watchlist_stocks WHERE watchlist_id=?))
		ON CONFLICT(watchlist_id, symbol) DO UPDATE SET
			target_price=excluded.target_price,
			alert_price=excluded.alert_price,
			is_alert_enabled=excluded.is_alert_enabled`,
		e.ID, watchlistID, e.Symbol, e.TargetPrice, e.AlertPrice, e.IsAlertEnabled, watchlistID,
	)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteStock(watchlistID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM watchlist_stocks WHERE watchlist_id=? AND symbol=?`, watchlistID, symbol)
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListWatchlistItems() ([]model.WatchlistItem, error) {
	return s.listItems(`SELECT id, symbol, quantity, avg_buy_price, notes FROM watchlist_items ORDER BY symbol`)
}

func (s *SQLiteStore) InsertWatchlistItem(it *model.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO watchlist_items (id, symbol, quantity, avg_buy_price, notes) VALUES (?,?,?,?,?)`,
		it.ID, it.Symbol, it.Quantity, it.AvgBuyPrice, it.Notes)
	if err != nil {
		return fmt.Errorf("insert watchlist item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateWatchlistItem(it *model.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE watchlist_items SET symbol=?, quantity=?, avg_buy_price=?, notes=? WHERE id=?`,
		it.Symbol, it.Quantity, it.AvgBuyPrice, it.Notes, it.ID)
	if err != nil {
		return fmt.Errorf("update watchlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteWatchlistItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM watchlist_items WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete watchlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListPortfolio() ([]model.PortfolioItem, error) {
	items, err := s.listItems(`SELECT id, symbol, quantity, avg_buy_price, notes FROM portfolio_items ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	out := make([]model.PortfolioItem, len(items))
	for i, it := range items {
		out[i] = model.PortfolioItem{ID: it.ID, Symbol: it.Symbol, Quantity: it.Quantity, AvgBuyPrice: it.AvgBuyPrice, Notes: it.Notes}
	}
	return out, nil
}

func (s *SQLiteStore) InsertPortfolioItem(it *model.PortfolioItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO portfolio_items (id, symbol, quantity, avg_buy_price, notes) VALUES (?,?,?,?,?)`,
		it.ID, it.Symbol, it.Quantity, it.AvgBuyPrice, it.Notes)
	if err != nil {
		return fmt.Errorf("insert portfolio item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeletePortfolioItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM portfolio_items WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete portfolio item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) listItems(query string) ([]model.WatchlistItem, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.WatchlistItem
	for rows.Next() {
		var it model.WatchlistItem
		var qty, avg sql.NullFloat64
		var notes sql.NullString
		if err := rows.Scan(&it.ID, &it.Symbol, &qty, &avg, &notes); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Quantity = qty.Float64
		it.AvgBuyPrice = avg.Float64
		it.Notes = notes.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Maintain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	log.Info("closing sqlite store")
	return s.db.Close()
}

func triggeredAtUnix(a *model.Alert) interface{} {
	if a.TriggeredAt == nil {
		return nil
	}
	return a.TriggeredAt.Unix()
}
