package quote

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"stockwatch/internal/model"
)

// FetchAll fetches one quote per symbol concurrently. A failed fetch for one
// symbol never blocks the others; failures are logged and the symbol is
// omitted from the result.
func FetchAll(ctx context.Context, src Source, symbols []string) map[string]model.Quote {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		quotes = make(map[string]model.Quote, len(symbols))
	)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			q, err := src.Quote(ctx, symbol)
			if err != nil {
				log.Warnf("quote fetch failed for %s: %v", symbol, err)
				return
			}
			mu.Lock()
			quotes[NormalizeSymbol(q.Symbol)] = q
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return quotes
}
