package repository

import (
	"context"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	applogger "VolSignals/pkg/logger"
)

// EventPublisher is the part of the Kafka producer the audit publisher uses.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaAuditPublisher publishes audit events keyed by instrument so events of
// one instrument stay ordered within a partition.
type KafkaAuditPublisher struct {
	producer EventPublisher
	topic    string
	l        *applogger.Logger
}

func NewKafkaAuditPublisher(producer EventPublisher, topic string, l *applogger.Logger) *KafkaAuditPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaAuditPublisher{producer: producer, topic: topic, l: l}
}

func (p *KafkaAuditPublisher) Emit(ctx context.Context, ev models.AuditEvent) {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.Instrument), ev); err != nil {
		p.l.Error("kafka audit publish failed",
			applogger.String("topic", p.topic),
			applogger.String("kind", string(ev.Kind)),
			applogger.Error(err),
		)
	}
}

var _ drepo.AuditSink = (*KafkaAuditPublisher)(nil)
