package model

import "time"

// Quote is a point-in-time price observation for a symbol. It is the single
// normalized shape used past the quote-source boundary; adapters translate
// whatever field variants a provider uses into this type.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change,omitempty"`
	ChangePercent float64   `json:"change_percent,omitempty"`
	Time          time.Time `json:"time"`
}
