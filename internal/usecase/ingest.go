package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	"VolSignals/internal/services/series"
	pkgkafka "VolSignals/pkg/kafka"
)

// Ingester accepts one live tick. processed reports whether a decision tick
// ran.
type Ingester interface {
	Ingest(ctx context.Context, t *models.LiveTick) (res TickResult, processed bool, err error)
}

// TickIngestor records live ticks into the series book and triggers a
// decision tick for ticks of the traded instrument.
type TickIngestor struct {
	book    *series.Book
	proc    *TickProcessor
	metrics drepo.Metrics
}

func NewTickIngestor(book *series.Book, proc *TickProcessor, metrics drepo.Metrics) *TickIngestor {
	return &TickIngestor{book: book, proc: proc, metrics: metrics}
}

// Ingest stores the tick and, when it belongs to the traded instrument (or
// names none), processes a decision tick at its timestamp.
func (i *TickIngestor) Ingest(ctx context.Context, t *models.LiveTick) (TickResult, bool, error) {
	if t == nil || t.Time.IsZero() {
		i.metrics.RecordError("tick_malformed")
		return TickResult{}, false, fmt.Errorf("%w: tick without timestamp", models.ErrMalformedRecord)
	}
	i.metrics.RecordLatency("ingest_e2e", time.Since(t.Time).Seconds())
	i.book.ApplyTick(t)

	if t.Instrument != "" && t.Instrument != i.proc.params.Instrument {
		return TickResult{}, false, nil
	}
	return i.proc.Process(ctx, t.Time), true, nil
}

// KafkaTicksHandler consumes live ticks from Kafka.
type KafkaTicksHandler struct {
	topic    string
	ingestor Ingester
	metrics  drepo.Metrics
}

func NewKafkaTicksHandler(topic string, ingestor Ingester, metrics drepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// Handle decodes {instrument, ts, price, signals}. Malformed payloads are
// returned as errors so the consumer can retry and dead-letter them.
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var t models.LiveTick
	if err := json.Unmarshal(b, &t); err != nil {
		h.metrics.RecordError("tick_unmarshal")
		return fmt.Errorf("%w: %v", models.ErrMalformedRecord, err)
	}
	_, _, err := h.ingestor.Ingest(ctx, &t)
	return err
}

var (
	_ Ingester                = (*TickIngestor)(nil)
	_ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
)
