package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/model"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	"stockwatch/internal/store"
)

// failingStore forces UpdateAlert to fail for rollback tests.
type failingStore struct {
	store.Store
	failUpdate bool
}

func (f *failingStore) UpdateAlert(a *model.Alert) error {
	if f.failUpdate {
		return errors.New("persist failed")
	}
	return f.Store.UpdateAlert(a)
}

func newTestEngine(t *testing.T, st store.Store) (*Engine, *quote.MockSource, *notify.Hub, *notify.ToastNotifier) {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	src := quote.NewMockSource()
	hub := notify.NewHub()
	toasts, err := notify.NewToastNotifier(hub, 50)
	require.NoError(t, err)
	eng := NewEngine(st, src, hub, nil, time.Minute)
	eng.Load(context.Background())
	return eng, src, hub, toasts
}

func TestCheck_TriggerDirections(t *testing.T) {
	tests := []struct {
		name      string
		condition model.AlertCondition
		target    float64
		price     float64
		fires     bool
	}{
		{"above fires at threshold", model.ConditionAbove, 3500, 3500, true},
		{"above fires past threshold", model.ConditionAbove, 3500, 3510, true},
		{"above holds below threshold", model.ConditionAbove, 3500, 3499.99, false},
		{"below fires at threshold", model.ConditionBelow, 3500, 3500, true},
		{"below fires under threshold", model.ConditionBelow, 3500, 3400, true},
		{"below holds above threshold", model.ConditionBelow, 3500, 3500.01, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, _, _ := newTestEngine(t, nil)
			a, err := eng.Add("TCS", tt.target, tt.condition, "")
			require.NoError(t, err)

			fired := eng.Check("TCS", tt.price)
			if tt.fires {
				require.Len(t, fired, 1)
				got, err := eng.Get(a.ID)
				require.NoError(t, err)
				assert.True(t, got.IsTriggered)
				assert.NotNil(t, got.TriggeredAt)
			} else {
				assert.Empty(t, fired)
				got, err := eng.Get(a.ID)
				require.NoError(t, err)
				assert.False(t, got.IsTriggered)
			}
		})
	}
}

func TestCheck_RollbackOnPersistFailure(t *testing.T) {
	fs := &failingStore{Store: store.NewMemoryStore()}
	eng, _, _, _ := newTestEngine(t, fs)

	a, err := eng.Add("TCS", 3500, model.ConditionAbove, "")
	require.NoError(t, err)

	fs.failUpdate = true
	fired := eng.Check("TCS", 3510)
	assert.Empty(t, fired, "a failed persist must not count as a trigger")

	got, err := eng.Get(a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTriggered, "trigger flag must revert on persist failure")
	assert.Nil(t, got.TriggeredAt, "trigger timestamp must revert on persist failure")

	// Once persistence recovers the alert fires normally.
	fs.failUpdate = false
	fired = eng.Check("TCS", 3510)
	require.Len(t, fired, 1)
}

func TestCheckAll_Idempotent(t *testing.T) {
	eng, src, _, _ := newTestEngine(t, nil)
	src.SetPrice("TCS", 3510)

	_, err := eng.Add("TCS", 3500, model.ConditionAbove, "")
	require.NoError(t, err)

	eng.CheckAll(context.Background(), 1)
	first := countTriggered(eng)
	require.Equal(t, 1, first)

	// Same prices again: the triggered alert is excluded from symbol
	// collection, so nothing fires a second time.
	eng.CheckAll(context.Background(), 2)
	assert.Equal(t, 1, countTriggered(eng))
}

func TestAdd_DuplicateGuard(t *testing.T) {
	eng, _, _, toasts := newTestEngine(t, nil)

	_, err := eng.Add("TCS", 3500, model.ConditionAbove, "")
	require.NoError(t, err)

	_, err = eng.Add("TCS", 3500, model.ConditionAbove, "")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, eng.Sorted(), 1, "exactly one alert stored")

	var warned bool
	for _, toast := range toasts.Recent() {
		if toast.Level == "warning" && strings.Contains(toast.Message, "TCS") {
			warned = true
		}
	}
	assert.True(t, warned, "duplicate add must surface a warning toast")

	// A different condition on the same symbol and price is a new rule.
	_, err = eng.Add("TCS", 3500, model.ConditionBelow, "")
	assert.NoError(t, err)
}

func TestAdd_Validation(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, nil)

	_, err := eng.Add("TCS", 0, model.ConditionAbove, "")
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = eng.Add("TCS", -5, model.ConditionAbove, "")
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = eng.Add("TCS", 100, "sideways", "")
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestTriggerScenario_ToastAndDesktop(t *testing.T) {
	eng, _, hub, toasts := newTestEngine(t, nil)

	var sentTitle string
	_, err := notify.NewDesktopNotifier(hub, notify.PermissionGranted, nil, func(title, body string) error {
		sentTitle = title
		return nil
	})
	require.NoError(t, err)

	_, err = eng.Add("TCS", 3500, model.ConditionAbove, "")
	require.NoError(t, err)

	fired := eng.Check("TCS", 3510)
	require.Len(t, fired, 1)

	var found bool
	for _, toast := range toasts.Recent() {
		if strings.Contains(toast.Message, "TCS") && strings.Contains(toast.Message, "3510") {
			found = true
		}
	}
	assert.True(t, found, "toast must name the symbol and the price")
	assert.Contains(t, sentTitle, "TCS", "desktop notification attempted when permission granted")
}

func TestTriggerScenario_NoDesktopWhenDenied(t *testing.T) {
	eng, _, hub, _ := newTestEngine(t, nil)

	sent := false
	_, err := notify.NewDesktopNotifier(hub, notify.PermissionDenied, nil, func(string, string) error {
		sent = true
		return nil
	})
	require.NoError(t, err)

	_, err = eng.Add("TCS", 3500, model.ConditionAbove, "")
	require.NoError(t, err)
	eng.Check("TCS", 3510)
	assert.False(t, sent, "denied permission must not attempt a desktop notification")
}

func TestDelete_ConfirmationGate(t *testing.T) {
	st := store.NewMemoryStore()
	src := quote.NewMockSource()
	hub := notify.NewHub()

	denied := NewEngine(st, src, hub, func(model.Alert) bool { return false }, time.Minute)
	denied.Load(context.Background())
	a, err := denied.Add("TCS", 3500, model.ConditionAbove, "")
	require.NoError(t, err)

	assert.ErrorIs(t, denied.Delete(a.ID), ErrNotConfirmed)
	assert.Len(t, denied.Sorted(), 1)

	allowed := NewEngine(st, src, hub, func(model.Alert) bool { return true }, time.Minute)
	allowed.Load(context.Background())
	require.NoError(t, allowed.Delete(a.ID))
	assert.Empty(t, allowed.Sorted())
}

func TestEdit(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, nil)
	a, err := eng.Add("TCS", 3500, model.ConditionAbove, "")
	require.NoError(t, err)

	assert.ErrorIs(t, eng.Edit(a.ID, 0, model.ConditionAbove), ErrInvalidPrice)
	assert.ErrorIs(t, eng.Edit("missing", 3600, model.ConditionAbove), store.ErrNotFound)

	require.NoError(t, eng.Edit(a.ID, 3600, model.ConditionBelow))
	got, err := eng.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3600.0, got.TargetPrice)
	assert.Equal(t, model.ConditionBelow, got.Condition)
}

func TestSorted_Ordering(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, nil)

	for _, sym := range []string{"WIPRO", "INFY", "TCS", "HDFC"} {
		_, err := eng.Add(sym, 100, model.ConditionAbove, "")
		require.NoError(t, err)
	}
	// Trigger two of them.
	eng.Check("WIPRO", 150)
	eng.Check("HDFC", 150)

	got := eng.Sorted()
	require.Len(t, got, 4)
	assert.Equal(t, "INFY", got[0].Symbol)
	assert.Equal(t, "TCS", got[1].Symbol)
	assert.False(t, got[0].IsTriggered)
	assert.False(t, got[1].IsTriggered)
	assert.Equal(t, "HDFC", got[2].Symbol)
	assert.Equal(t, "WIPRO", got[3].Symbol)
	assert.True(t, got[2].IsTriggered)
	assert.True(t, got[3].IsTriggered)
}

func TestLoad_ErrorDegradesToEmpty(t *testing.T) {
	ls := &listFailStore{Store: store.NewMemoryStore()}
	src := quote.NewMockSource()
	hub := notify.NewHub()
	toasts, err := notify.NewToastNotifier(hub, 10)
	require.NoError(t, err)

	eng := NewEngine(ls, src, hub, nil, time.Minute)
	eng.Load(context.Background())

	assert.True(t, eng.Initialized())
	assert.Empty(t, eng.Sorted())
	require.NotEmpty(t, toasts.Recent())
	assert.Equal(t, "error", toasts.Recent()[0].Level)
}

type listFailStore struct {
	store.Store
}

func (l *listFailStore) ListAlerts() ([]model.Alert, error) {
	return nil, errors.New("backend unavailable")
}

func countTriggered(eng *Engine) int {
	n := 0
	for _, a := range eng.Sorted() {
		if a.IsTriggered {
			n++
		}
	}
	return n
}
