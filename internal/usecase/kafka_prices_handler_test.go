package usecase

import (
	"context"
	"errors"
	"testing"

	"PriceCast/internal/repository"
	pkgkafka "PriceCast/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPricesHandler_StoresObservation(t *testing.T) {
	svc, store, d := newTestProducts(t)
	h := NewKafkaPricesHandler("pricecast.prices", svc, d.metrics)
	assert.Equal(t, "pricecast.prices", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"product_id":"sku-1","date":"2024-02-01","price":19.99}`))
	require.NoError(t, err)
	err = h.Handle(context.Background(), []byte(`{"product_id":"sku-1","date":"2024-02-02T10:00:00Z","price":18.5,"source":"scraper"}`))
	require.NoError(t, err)

	got, err := store.History(context.Background(), "sku-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "kafka", got[0].Source)
	assert.Equal(t, "scraper", got[1].Source)
	assert.Equal(t, 1, d.metrics.ingested["kafka"])
	assert.Equal(t, 1, d.metrics.ingested["scraper"])
}

func TestKafkaPricesHandler_MalformedIsPermanent(t *testing.T) {
	svc, _, d := newTestProducts(t)
	h := NewKafkaPricesHandler("t", svc, d.metrics)

	for _, msg := range []string{
		`not json`,
		`{"date":"2024-02-01","price":1}`,
		`{"product_id":"x","date":"soon","price":1}`,
		`{"product_id":"x","date":"2024-02-01"}`,
		`{"product_id":"x","date":"2024-02-01","price":-3}`,
	} {
		err := h.Handle(context.Background(), []byte(msg))
		require.Error(t, err, msg)
		assert.True(t, pkgkafka.IsPermanent(err), msg)
	}
}

func TestKafkaPricesHandler_StoreErrorIsRetryable(t *testing.T) {
	p, d := newTestPredictor(t, nil, PredictorConfig{})
	store := &failingStore{MemoryStore: repository.NewMemoryStore(), err: errors.New("timeout")}
	h := NewKafkaPricesHandler("t", NewProductService(store, p, nil, d.metrics, nil), d.metrics)

	err := h.Handle(context.Background(), []byte(`{"product_id":"x","date":"2024-02-01","price":1}`))
	require.Error(t, err)
	assert.False(t, pkgkafka.IsPermanent(err))
}
