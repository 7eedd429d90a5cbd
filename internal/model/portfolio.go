package model

// PortfolioItem is a held position tracked alongside the watchlists.
type PortfolioItem struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AvgBuyPrice float64 `json:"avg_buy_price"`
	Notes       string  `json:"notes,omitempty"`
}
