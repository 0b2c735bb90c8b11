package repository

import (
	"context"
	"testing"
	"time"

	"PriceCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func pts(prices ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{Date: day0.AddDate(0, 0, i), Price: p, Source: "api"}
	}
	return out
}

func TestMemoryStore_AppendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	h := pts(10, 11, 12, 13)
	require.NoError(t, s.Append(ctx, "p1", []models.PricePoint{h[2], h[0]}))
	require.NoError(t, s.Append(ctx, "p1", []models.PricePoint{h[3], h[1]}))

	got, err := s.History(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := range got {
		assert.Equal(t, h[i].Price, got[i].Price)
	}
}

func TestMemoryStore_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Append(ctx, "p1", pts(1, 2, 3, 4, 5)))

	got, err := s.History(ctx, "p1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4.0, got[0].Price)
	assert.Equal(t, 5.0, got[1].Price)

	// returned slice is a copy
	got[0].Price = 99
	again, _ := s.History(ctx, "p1", 2)
	assert.Equal(t, 4.0, again[0].Price)
}

func TestMemoryStore_UnknownAndProducts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := s.History(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Append(ctx, "b", pts(1)))
	require.NoError(t, s.Append(ctx, "a", pts(1)))
	ids, err := s.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
