package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	failures int
	err      error
	calls    int
}

func (h *flakyHandler) Topic() string { return "pricecast.prices" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

func newTestConsumer(t *testing.T, retryMax int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retryMax, time.Millisecond, 2*time.Millisecond),
		WithConsumerRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	return c
}

func TestHandleWithRetryRecovers(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &flakyHandler{failures: 2, err: errors.New("store busy")}

	attempts, err := c.handleWithRetry(h, []byte("{}"))
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestHandleWithRetryGivesUp(t *testing.T) {
	c := newTestConsumer(t, 2)
	h := &flakyHandler{failures: 10, err: errors.New("store down")}

	attempts, err := c.handleWithRetry(h, nil)
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestPermanentErrorsSkipRetry(t *testing.T) {
	c := newTestConsumer(t, 5)
	h := &flakyHandler{failures: 10, err: Permanent(errors.New("bad json"))}

	attempts, err := c.handleWithRetry(h, nil)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
	assert.Nil(t, Permanent(nil))
}

func TestProcessCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(0, time.Millisecond, time.Millisecond),
		WithConsumerRegisterer(reg),
	)
	require.NoError(t, err)

	h := &flakyHandler{failures: 1, err: Permanent(errors.New("bad"))}
	c.process(h, &message{topic: h.Topic(), km: kafka.Message{Value: []byte("x")}})
	c.process(h, &message{topic: h.Topic(), km: kafka.Message{Value: []byte("y")}})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.m.handled.WithLabelValues(h.Topic(), "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.m.handled.WithLabelValues(h.Topic(), "ok")))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 200*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)

	_, err = NewProducer()
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, _ = encode("raw")
	assert.Equal(t, "raw", string(b))

	_, err = encode(func() {})
	assert.Error(t, err)
}
