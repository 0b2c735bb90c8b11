package repository

import (
	"context"
	"errors"
	"testing"

	"PriceCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topic  string
	key    []byte
	value  interface{}
	err    error
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func (f *fakeProducer) Close() error { f.closed = true; return nil }

func TestKafkaPublisher_KeysByProduct(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, "pricecast.predictions")

	ev := &models.PredictionEvent{ID: "e1", ProductID: "sku-1", ProductName: "Kettle"}
	require.NoError(t, p.Publish(context.Background(), ev))
	assert.Equal(t, "pricecast.predictions", fp.topic)
	assert.Equal(t, []byte("sku-1"), fp.key)
	assert.Same(t, ev, fp.value)

	require.NoError(t, p.Publish(context.Background(), &models.PredictionEvent{ProductName: "Kettle"}))
	assert.Equal(t, []byte("Kettle"), fp.key)

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}

func TestKafkaPublisher_PropagatesError(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	p := NewKafkaPublisher(fp, "t")
	assert.Error(t, p.Publish(context.Background(), &models.PredictionEvent{ProductID: "x"}))
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), &models.PredictionEvent{}))
	assert.NoError(t, p.Close())
}
