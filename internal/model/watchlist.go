package model

// WatchlistItem is a flat tracked-symbol row from the quick list.
// CurrentPrice is derived from the quote source on read and never persisted.
type WatchlistItem struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity,omitempty"`
	AvgBuyPrice  float64 `json:"avg_buy_price,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	CurrentPrice float64 `json:"current_price,omitempty"`
}

// StockEntry is one symbol inside a named watchlist, with per-symbol
// alert settings. The price fields are derived and never persisted.
type StockEntry struct {
	ID                 string  `json:"id"`
	Symbol             string  `json:"symbol"`
	TargetPrice        float64 `json:"target_price,omitempty"`
	AlertPrice         float64 `json:"alert_price,omitempty"`
	IsAlertEnabled     bool    `json:"is_alert_enabled"`
	CurrentPrice       float64 `json:"current_price,omitempty"`
	PriceChange        float64 `json:"price_change,omitempty"`
	PriceChangePercent float64 `json:"price_change_percent,omitempty"`
}

// Watchlist is a named, ordered collection of stock entries.
// At most one watchlist per store is the default.
type Watchlist struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	IsDefault bool         `json:"is_default"`
	Stocks    []StockEntry `json:"stocks"`
}

// AlertEnabledCount returns how many entries have alerts enabled.
func (w *Watchlist) AlertEnabledCount() int {
	n := 0
	for i := range w.Stocks {
		if w.Stocks[i].IsAlertEnabled {
			n++
		}
	}
	return n
}
