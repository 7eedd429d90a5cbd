package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"stockwatch/internal/model"
)

// StreamSource answers quotes from a live websocket tick feed. It keeps the
// latest tick per symbol in a cache; Quote reads the cache and never waits
// for the feed.
type StreamSource struct {
	wsURL  string
	apiKey string

	mu         sync.RWMutex
	latest     map[string]model.Quote
	subscribed map[string]struct{}
	conn       *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

// streamTick is the wire shape of one tick on the feed.
type streamTick struct {
	Ev     string  `json:"ev"`
	Symbol string  `json:"sym"`
	Price  float64 `json:"p"`
	T      int64   `json:"t"` // unix ms
}

func NewStreamSource(wsURL, apiKey string) *StreamSource {
	return &StreamSource{
		wsURL:      wsURL,
		apiKey:     apiKey,
		latest:     make(map[string]model.Quote),
		subscribed: make(map[string]struct{}),
	}
}

func (s *StreamSource) Name() string { return "stream" }

// Start connects to the feed and runs the read loop until Stop or ctx cancel.
func (s *StreamSource) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop tears down the connection and waits for the read loop to exit.
func (s *StreamSource) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
}

func (s *StreamSource) run(ctx context.Context) {
	defer close(s.done)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("stream connect failed: %v, retrying in %v", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		s.readLoop(ctx)
	}
}

func (s *StreamSource) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.wsURL, err)
	}

	if s.apiKey != "" {
		auth := map[string]string{"action": "auth", "params": s.apiKey}
		if err := conn.WriteJSON(auth); err != nil {
			conn.Close()
			return fmt.Errorf("auth: %w", err)
		}
	}

	s.mu.Lock()
	s.conn = conn
	symbols := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		symbols = append(symbols, sym)
	}
	s.mu.Unlock()

	if len(symbols) > 0 {
		if err := s.sendSubscribe(symbols); err != nil {
			conn.Close()
			return err
		}
	}
	log.Infof("stream connected: %s (%d symbols)", s.wsURL, len(symbols))
	return nil
}

func (s *StreamSource) readLoop(ctx context.Context) {
	for {
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warnf("stream read: %v", err)
			}
			conn.Close()
			return
		}

		var ticks []streamTick
		if err := json.Unmarshal(data, &ticks); err != nil {
			// Single-object frames are valid on some feeds.
			var one streamTick
			if err := json.Unmarshal(data, &one); err != nil {
				log.Warnf("stream decode: %v", err)
				continue
			}
			ticks = []streamTick{one}
		}

		s.mu.Lock()
		for _, tk := range ticks {
			if tk.Symbol == "" || tk.Price <= 0 {
				continue
			}
			sym := NormalizeSymbol(tk.Symbol)
			s.latest[sym] = model.Quote{
				Symbol: sym,
				Price:  tk.Price,
				Time:   time.UnixMilli(tk.T),
			}
		}
		s.mu.Unlock()
	}
}

// Subscribe registers interest in a symbol with the feed.
func (s *StreamSource) Subscribe(symbols ...string) error {
	norm := make([]string, 0, len(symbols))
	s.mu.Lock()
	for _, sym := range symbols {
		n := NormalizeSymbol(sym)
		if _, ok := s.subscribed[n]; ok {
			continue
		}
		s.subscribed[n] = struct{}{}
		norm = append(norm, n)
	}
	connected := s.conn != nil
	s.mu.Unlock()

	if len(norm) == 0 || !connected {
		return nil
	}
	return s.sendSubscribe(norm)
}

func (s *StreamSource) sendSubscribe(symbols []string) error {
	msg := map[string]interface{}{"action": "subscribe", "symbols": symbols}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *StreamSource) Quote(_ context.Context, symbol string) (model.Quote, error) {
	sym := NormalizeSymbol(symbol)
	s.mu.RLock()
	q, ok := s.latest[sym]
	s.mu.RUnlock()
	if !ok {
		return model.Quote{}, fmt.Errorf("stream: no tick yet for %s", sym)
	}
	return q, nil
}

func (s *StreamSource) Quotes(ctx context.Context, symbols []string) map[string]model.Quote {
	return FetchAll(ctx, s, symbols)
}
