package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	pkgkafka "PriceCast/pkg/kafka"
)

const kafkaSource = "kafka"

// KafkaPricesHandler appends price observations consumed from Kafka.
type KafkaPricesHandler struct {
	topic    string
	products *ProductService
	metrics  domrepo.Metrics
}

func NewKafkaPricesHandler(topic string, products *ProductService, metrics domrepo.Metrics) *KafkaPricesHandler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &KafkaPricesHandler{topic: topic, products: products, metrics: metrics}
}

func (h *KafkaPricesHandler) Topic() string { return h.topic }

// incoming message schema: {product_id, date, price, source}
func (h *KafkaPricesHandler) Handle(ctx context.Context, b []byte) error {
	var m models.PriceObservation
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode price observation: %w", err))
	}
	if m.ProductID == "" {
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(models.NewValidationError("ingest", "product_id is required"))
	}

	src := m.Source
	if src == "" {
		src = kafkaSource
	}
	points, err := models.ToPriceHistory([]models.PricePointRequest{{Date: m.Date, Price: m.Price, Source: src}}, kafkaSource)
	if err != nil {
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	}

	// store errors are retried by the consumer
	return h.products.Ingest(ctx, m.ProductID, points)
}

var _ pkgkafka.MessageHandler = (*KafkaPricesHandler)(nil)
