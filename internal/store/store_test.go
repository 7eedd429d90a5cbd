package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/model"
)

// The same behavior suite runs against both implementations.
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestAlertCRUD(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			a := model.Alert{
				ID:          "a1",
				Symbol:      "TCS",
				TargetPrice: 3500,
				Condition:   model.ConditionAbove,
				CreatedAt:   time.Now().Truncate(time.Second),
				Notes:       "quarterly target",
			}
			require.NoError(t, st.InsertAlert(&a))

			alerts, err := st.ListAlerts()
			require.NoError(t, err)
			require.Len(t, alerts, 1)
			assert.Equal(t, "TCS", alerts[0].Symbol)
			assert.Equal(t, 3500.0, alerts[0].TargetPrice)
			assert.False(t, alerts[0].IsTriggered)
			assert.Nil(t, alerts[0].TriggeredAt)

			now := time.Now().Truncate(time.Second)
			a.IsTriggered = true
			a.TriggeredAt = &now
			require.NoError(t, st.UpdateAlert(&a))

			alerts, err = st.ListAlerts()
			require.NoError(t, err)
			require.Len(t, alerts, 1)
			assert.True(t, alerts[0].IsTriggered)
			require.NotNil(t, alerts[0].TriggeredAt)

			require.NoError(t, st.DeleteAlert("a1"))
			alerts, err = st.ListAlerts()
			require.NoError(t, err)
			assert.Empty(t, alerts)

			assert.ErrorIs(t, st.DeleteAlert("a1"), ErrNotFound)
			assert.ErrorIs(t, st.UpdateAlert(&a), ErrNotFound)
		})
	}
}

func TestPruneTriggeredAlerts(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			old := time.Now().Add(-48 * time.Hour)
			recent := time.Now()
			insert := func(id string, triggered bool, at *time.Time) {
				require.NoError(t, st.InsertAlert(&model.Alert{
					ID: id, Symbol: "TCS", TargetPrice: 100,
					Condition: model.ConditionAbove, CreatedAt: time.Now().Add(-72 * time.Hour),
					IsTriggered: triggered, TriggeredAt: at,
				}))
			}
			insert("stale", true, &old)
			insert("fresh", true, &recent)
			insert("active", false, nil)

			pruned, err := st.PruneTriggeredAlerts(time.Now().Add(-24 * time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 1, pruned)

			alerts, err := st.ListAlerts()
			require.NoError(t, err)
			assert.Len(t, alerts, 2)
			for _, a := range alerts {
				assert.NotEqual(t, "stale", a.ID)
			}
		})
	}
}

func TestWatchlistCRUDAndDefault(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			w1 := model.Watchlist{
				ID: "w1", Name: "Tech", IsDefault: true,
				Stocks: []model.StockEntry{
					{ID: "s1", Symbol: "TCS", TargetPrice: 3800, IsAlertEnabled: true},
					{ID: "s2", Symbol: "INFY"},
				},
			}
			w2 := model.Watchlist{ID: "w2", Name: "Banks"}
			require.NoError(t, st.InsertWatchlist(&w1))
			require.NoError(t, st.InsertWatchlist(&w2))

			got, err := st.GetWatchlist("w1")
			require.NoError(t, err)
			assert.True(t, got.IsDefault)
			require.Len(t, got.Stocks, 2)
			assert.Equal(t, "TCS", got.Stocks[0].Symbol)
			assert.True(t, got.Stocks[0].IsAlertEnabled)

			// Moving the default clears the previous one.
			require.NoError(t, st.SetDefaultWatchlist("w2"))
			lists, err := st.ListWatchlists()
			require.NoError(t, err)
			defaults := 0
			for _, w := range lists {
				if w.IsDefault {
					defaults++
					assert.Equal(t, "w2", w.ID)
				}
			}
			assert.Equal(t, 1, defaults, "at most one default watchlist")

			// Upsert updates in place on symbol conflict.
			require.NoError(t, st.UpsertStock("w1", &model.StockEntry{ID: "s1b", Symbol: "TCS", TargetPrice: 4000}))
			got, err = st.GetWatchlist("w1")
			require.NoError(t, err)
			require.Len(t, got.Stocks, 2)
			for _, e := range got.Stocks {
				if e.Symbol == "TCS" {
					assert.Equal(t, 4000.0, e.TargetPrice)
				}
			}

			require.NoError(t, st.DeleteStock("w1", "INFY"))
			got, err = st.GetWatchlist("w1")
			require.NoError(t, err)
			assert.Len(t, got.Stocks, 1)

			require.NoError(t, st.DeleteWatchlist("w1"))
			_, err = st.GetWatchlist("w1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestWatchlistItemsAndPortfolio(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			it := model.WatchlistItem{ID: "i1", Symbol: "TCS", Quantity: 10, AvgBuyPrice: 3200, Notes: "long term"}
			require.NoError(t, st.InsertWatchlistItem(&it))

			items, err := st.ListWatchlistItems()
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, 3200.0, items[0].AvgBuyPrice)
			assert.Zero(t, items[0].CurrentPrice, "derived price is never persisted")

			it.Quantity = 15
			require.NoError(t, st.UpdateWatchlistItem(&it))
			items, _ = st.ListWatchlistItems()
			assert.Equal(t, 15.0, items[0].Quantity)

			require.NoError(t, st.DeleteWatchlistItem("i1"))
			items, _ = st.ListWatchlistItems()
			assert.Empty(t, items)

			p := model.PortfolioItem{ID: "p1", Symbol: "INFY", Quantity: 20, AvgBuyPrice: 1400}
			require.NoError(t, st.InsertPortfolioItem(&p))
			ps, err := st.ListPortfolio()
			require.NoError(t, err)
			require.Len(t, ps, 1)
			assert.Equal(t, "INFY", ps[0].Symbol)
			require.NoError(t, st.DeletePortfolioItem("p1"))
		})
	}
}

func TestMaintain(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, st.Maintain())
		})
	}
}
