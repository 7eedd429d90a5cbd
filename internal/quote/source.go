package quote

import (
	"context"

	"stockwatch/internal/model"
)

// Source supplies current prices for symbols. Implementations must return
// errors rather than panic; batch fetches tolerate per-symbol failures.
type Source interface {
	// Quote returns the current quote for one symbol.
	Quote(ctx context.Context, symbol string) (model.Quote, error)
	// Quotes fetches quotes for multiple symbols. Symbols that fail are
	// simply absent from the result map.
	Quotes(ctx context.Context, symbols []string) map[string]model.Quote
	Name() string
}
