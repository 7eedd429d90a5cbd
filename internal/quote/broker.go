package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockwatch/internal/model"
)

// BrokerSource fetches quotes from a broker REST API.
type BrokerSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewBrokerSource creates a broker source with optional proxy support.
func NewBrokerSource(baseURL, apiKey, proxyURL string) *BrokerSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BrokerSource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (b *BrokerSource) Name() string { return "broker" }

// brokerQuote covers the price-field variants different broker endpoints
// emit (lp, last_price, price). Normalization happens here and nowhere else.
type brokerQuote struct {
	Symbol        string   `json:"symbol"`
	LP            *float64 `json:"lp,omitempty"`
	LastPrice     *float64 `json:"last_price,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
}

func (q *brokerQuote) normalize() (model.Quote, error) {
	var price float64
	switch {
	case q.LP != nil:
		price = *q.LP
	case q.LastPrice != nil:
		price = *q.LastPrice
	case q.Price != nil:
		price = *q.Price
	default:
		return model.Quote{}, fmt.Errorf("broker quote for %s has no price field", q.Symbol)
	}
	return model.Quote{
		Symbol:        NormalizeSymbol(q.Symbol),
		Price:         price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Time:          time.Now(),
	}, nil
}

func (b *BrokerSource) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/api/market/quote?symbol=%s", b.BaseURL, url.QueryEscape(symbol))
	body, err := b.get(ctx, endpoint)
	if err != nil {
		return model.Quote{}, err
	}
	var bq brokerQuote
	if err := json.Unmarshal(body, &bq); err != nil {
		return model.Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	if bq.Symbol == "" {
		bq.Symbol = symbol
	}
	return bq.normalize()
}

// Quotes uses the broker's batch endpoint. Entries that fail to normalize
// are dropped; a transport failure yields an empty map.
func (b *BrokerSource) Quotes(ctx context.Context, symbols []string) map[string]model.Quote {
	quotes := make(map[string]model.Quote, len(symbols))
	if len(symbols) == 0 {
		return quotes
	}

	endpoint := fmt.Sprintf("%s/api/market/quotes?symbols=%s", b.BaseURL, url.QueryEscape(strings.Join(symbols, ",")))
	body, err := b.get(ctx, endpoint)
	if err != nil {
		return quotes
	}
	var batch []brokerQuote
	if err := json.Unmarshal(body, &batch); err != nil {
		return quotes
	}
	for i := range batch {
		q, err := batch[i].normalize()
		if err != nil {
			continue
		}
		quotes[q.Symbol] = q
	}
	return quotes
}

func (b *BrokerSource) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("broker read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("broker: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
