package quote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSource_DeterministicBase(t *testing.T) {
	a := NewMockSource()
	b := NewMockSource()

	qa, err := a.Quote(context.Background(), "TCS")
	require.NoError(t, err)
	qb, err := b.Quote(context.Background(), "TCS")
	require.NoError(t, err)

	assert.Equal(t, qa.Price, qb.Price, "same symbol seeds the same walk")
	assert.Positive(t, qa.Price)

	other, err := a.Quote(context.Background(), "INFY")
	require.NoError(t, err)
	assert.NotEqual(t, qa.Price, other.Price, "different symbols get different prices")
}

func TestMockSource_PinnedPrice(t *testing.T) {
	m := NewMockSource()
	m.SetPrice("TCS", 3510)

	q, err := m.Quote(context.Background(), "NSE:TCS-EQ")
	require.NoError(t, err)
	assert.Equal(t, "TCS", q.Symbol)
	assert.Equal(t, 3510.0, q.Price)
}

func TestMockSource_EmptySymbol(t *testing.T) {
	m := NewMockSource()
	_, err := m.Quote(context.Background(), "")
	assert.Error(t, err)
}

func TestFetchAll_ToleratesFailures(t *testing.T) {
	m := NewMockSource()
	m.SetPrice("TCS", 3510)

	// The empty symbol fails; the others still resolve.
	quotes := FetchAll(context.Background(), m, []string{"TCS", "", "INFY"})
	assert.Len(t, quotes, 2)
	assert.Equal(t, 3510.0, quotes["TCS"].Price)
	assert.Contains(t, quotes, "INFY")
}
