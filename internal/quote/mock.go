package quote

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"stockwatch/internal/model"
)

// MockSource generates deterministic pseudo-prices for development and
// testing. Each symbol's base price is seeded from a hash of the symbol,
// then walks a small bounded step per call. Fixed prices can be pinned
// for tests.
type MockSource struct {
	mu     sync.Mutex
	pinned map[string]float64
	walks  map[string]*rand.Rand
	last   map[string]float64
	base   map[string]float64
}

func NewMockSource() *MockSource {
	return &MockSource{
		pinned: make(map[string]float64),
		walks:  make(map[string]*rand.Rand),
		last:   make(map[string]float64),
		base:   make(map[string]float64),
	}
}

func (m *MockSource) Name() string { return "mock" }

// SetPrice pins a fixed price for a symbol.
func (m *MockSource) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[NormalizeSymbol(symbol)] = price
}

// Unpin removes a pinned price so the symbol falls back to the generator.
func (m *MockSource) Unpin(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pinned, NormalizeSymbol(symbol))
}

func (m *MockSource) Quote(_ context.Context, symbol string) (model.Quote, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return model.Quote{}, fmt.Errorf("mock: empty symbol")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pinned[sym]; ok {
		return model.Quote{Symbol: sym, Price: p, Time: time.Now()}, nil
	}

	walk, ok := m.walks[sym]
	if !ok {
		seed := seedFor(sym)
		walk = rand.New(rand.NewSource(int64(seed)))
		// Base price in [50, 5050), stable per symbol.
		base := 50 + float64(seed%500000)/100
		m.walks[sym] = walk
		m.base[sym] = base
		m.last[sym] = base
	}

	// Bounded step of at most ±0.5% per call.
	price := m.last[sym] * (1 + (walk.Float64()-0.5)*0.01)
	m.last[sym] = price

	change := price - m.base[sym]
	changePct := 0.0
	if m.base[sym] > 0 {
		changePct = change / m.base[sym] * 100
	}
	return model.Quote{
		Symbol:        sym,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Time:          time.Now(),
	}, nil
}

func (m *MockSource) Quotes(ctx context.Context, symbols []string) map[string]model.Quote {
	return FetchAll(ctx, m, symbols)
}

func seedFor(symbol string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return h.Sum64()
}
