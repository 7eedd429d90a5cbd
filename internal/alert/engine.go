package alert

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"stockwatch/internal/model"
	"stockwatch/internal/notify"
	"stockwatch/internal/poller"
	"stockwatch/internal/quote"
	"stockwatch/internal/store"
)

var (
	// ErrInvalidPrice rejects non-positive target prices.
	ErrInvalidPrice = errors.New("target price must be positive")
	// ErrInvalidCondition rejects unknown conditions.
	ErrInvalidCondition = errors.New("condition must be above or below")
	// ErrDuplicate rejects a second active alert on the same rule.
	ErrDuplicate = errors.New("an active alert with the same symbol, price and condition already exists")
	// ErrNotConfirmed means the confirmation gate rejected a delete.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// ConfirmFunc is the confirmation gate consulted before a destructive
// action. A nil gate means the caller already confirmed.
type ConfirmFunc func(a model.Alert) bool

// Engine owns the in-memory alert list, keeps it synchronized with the
// store, evaluates trigger conditions against quotes, and emits exactly one
// notification per trigger.
type Engine struct {
	mu          sync.Mutex
	store       store.Store
	source      quote.Source
	hub         *notify.Hub
	confirm     ConfirmFunc
	alerts      []model.Alert
	initialized bool

	// lastIssued tracks, per symbol, the newest poll cycle that requested a
	// quote. A quote resolving under an older cycle is discarded.
	lastIssued map[string]uint64

	poll *poller.Poller
}

// NewEngine wires an engine. The poll interval drives CheckAll.
func NewEngine(st store.Store, src quote.Source, hub *notify.Hub, confirm ConfirmFunc, interval time.Duration) *Engine {
	e := &Engine{
		store:      st,
		source:     src,
		hub:        hub,
		confirm:    confirm,
		lastIssued: make(map[string]uint64),
	}
	e.poll = poller.New("alerts", interval, e.CheckAll)
	return e
}

// Start loads alerts and begins background polling.
func (e *Engine) Start(ctx context.Context) {
	e.Load(ctx)
	e.poll.Start(ctx)
}

// Stop cancels the background poll.
func (e *Engine) Stop() {
	e.poll.Stop()
}

// Load fetches all alerts into memory and marks the engine initialized.
// A fetch error degrades to an empty list; the next poll cycle retries.
func (e *Engine) Load(_ context.Context) {
	alerts, err := e.store.ListAlerts()
	if err != nil {
		log.Errorf("load alerts: %v", err)
		e.hub.Toastf("error", "could not load alerts: %v", err)
		alerts = nil
	}

	e.mu.Lock()
	e.alerts = alerts
	e.initialized = true
	e.mu.Unlock()
	log.Infof("alert engine loaded %d alerts", len(alerts))
}

// Initialized reports whether Load has completed at least once.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Check evaluates every non-triggered alert on the symbol against the
// price. Matching alerts are triggered optimistically and persisted; a
// failed persist reverts the trigger. One notification fires per success.
// Returns the alerts that fired.
func (e *Engine) Check(symbol string, price float64) []model.Alert {
	sym := quote.NormalizeSymbol(symbol)

	e.mu.Lock()
	var fired []model.Alert
	for i := range e.alerts {
		a := &e.alerts[i]
		if a.IsTriggered || quote.NormalizeSymbol(a.Symbol) != sym {
			continue
		}
		if !a.ShouldTrigger(price) {
			continue
		}

		now := time.Now()
		err := applyOptimistic(
			func() {
				a.IsTriggered = true
				a.TriggeredAt = &now
			},
			func() error { return e.store.UpdateAlert(a) },
			func() {
				a.IsTriggered = false
				a.TriggeredAt = nil
			},
		)
		if err != nil {
			log.Errorf("persist triggered alert %s: %v", a.ID, err)
			e.hub.Toastf("error", "could not save triggered alert for %s", a.Symbol)
			continue
		}
		fired = append(fired, *a)
	}
	e.mu.Unlock()

	for _, a := range fired {
		e.hub.PublishTriggered(notify.TriggeredEvent{Alert: a, Price: price, At: time.Now()})
	}
	return fired
}

// CheckAll fetches one quote per distinct active symbol concurrently and
// feeds each resolved quote into Check. Already-triggered alerts contribute
// no symbols, so repeated runs with unchanged prices fire nothing new.
func (e *Engine) CheckAll(ctx context.Context, seq uint64) {
	e.mu.Lock()
	seen := make(map[string]struct{})
	var symbols []string
	for i := range e.alerts {
		if e.alerts[i].IsTriggered {
			continue
		}
		sym := quote.NormalizeSymbol(e.alerts[i].Symbol)
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
		e.lastIssued[sym] = seq
	}
	e.mu.Unlock()

	if len(symbols) == 0 {
		return
	}

	quotes := e.source.Quotes(ctx, symbols)
	for sym, q := range quotes {
		if e.stale(sym, seq) {
			log.Warnf("discarding stale quote for %s (cycle %d)", sym, seq)
			continue
		}
		e.Check(sym, q.Price)
	}
}

func (e *Engine) stale(symbol string, seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastIssued[symbol] > seq
}

// Add validates and persists a new alert, then prepends it to the in-memory
// list. A second active alert on the same rule is rejected with a warning.
func (e *Engine) Add(symbol string, targetPrice float64, condition model.AlertCondition, notes string) (*model.Alert, error) {
	if targetPrice <= 0 {
		return nil, ErrInvalidPrice
	}
	if !condition.Valid() {
		return nil, ErrInvalidCondition
	}

	a := model.Alert{
		ID:          uuid.NewString(),
		Symbol:      quote.NormalizeSymbol(symbol),
		TargetPrice: targetPrice,
		Condition:   condition,
		CreatedAt:   time.Now(),
		Notes:       notes,
	}

	e.mu.Lock()
	for i := range e.alerts {
		if !e.alerts[i].IsTriggered && e.alerts[i].SameRule(&a) {
			e.mu.Unlock()
			e.hub.Toastf("warning", "alert for %s at %.2f (%s) already exists", a.Symbol, a.TargetPrice, a.Condition)
			return nil, ErrDuplicate
		}
	}
	e.mu.Unlock()

	if err := e.store.InsertAlert(&a); err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}

	e.mu.Lock()
	e.alerts = append([]model.Alert{a}, e.alerts...)
	e.mu.Unlock()
	return &a, nil
}

// Delete removes an alert after the confirmation gate approves.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	idx := -1
	for i := range e.alerts {
		if e.alerts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return store.ErrNotFound
	}
	target := e.alerts[idx]
	e.mu.Unlock()

	if e.confirm != nil && !e.confirm(target) {
		return ErrNotConfirmed
	}

	if err := e.store.DeleteAlert(id); err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}

	e.mu.Lock()
	for i := range e.alerts {
		if e.alerts[i].ID == id {
			e.alerts = append(e.alerts[:i], e.alerts[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
	return nil
}

// Edit updates an alert's target price and condition in place.
func (e *Engine) Edit(id string, targetPrice float64, condition model.AlertCondition) error {
	if targetPrice <= 0 {
		return ErrInvalidPrice
	}
	if !condition.Valid() {
		return ErrInvalidCondition
	}

	e.mu.Lock()
	idx := -1
	for i := range e.alerts {
		if e.alerts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return store.ErrNotFound
	}
	updated := e.alerts[idx]
	updated.TargetPrice = targetPrice
	updated.Condition = condition
	e.mu.Unlock()

	if err := e.store.UpdateAlert(&updated); err != nil {
		return fmt.Errorf("update alert: %w", err)
	}

	e.mu.Lock()
	for i := range e.alerts {
		if e.alerts[i].ID == id {
			e.alerts[i] = updated
			break
		}
	}
	e.mu.Unlock()
	return nil
}

// Sorted returns the alerts for display: non-triggered before triggered,
// ascending symbol within each group.
func (e *Engine) Sorted() []model.Alert {
	e.mu.Lock()
	out := make([]model.Alert, len(e.alerts))
	copy(out, e.alerts)
	e.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsTriggered != out[j].IsTriggered {
			return !out[i].IsTriggered
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Get returns one alert by id.
func (e *Engine) Get(id string) (*model.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.alerts {
		if e.alerts[i].ID == id {
			a := e.alerts[i]
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}
