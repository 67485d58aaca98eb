package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"stayhub/internal/pkg/config"

	"github.com/IBM/sarama"
)

// KafkaPublisher emits domain events for the notification dispatcher.
// Publishing happens after the owning transaction committed, so a broker
// failure is logged and dropped rather than failing the request. Events are
// keyed by booking id to keep per-booking ordering within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, func(), error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Producer.Return.Successes = true
	sc.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, nil, err
	}

	p := &KafkaPublisher{producer: producer, topic: cfg.Topic}
	cleanup := func() {
		if err := p.producer.Close(); err != nil {
			slog.Warn("failed to close kafka producer", "error", err.Error())
		}
	}
	return p, cleanup, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal event payload", "event_type", eventType, "key", key, "error", err.Error())
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		slog.Error("failed to publish event", "event_type", eventType, "key", key, "error", err.Error())
		return
	}
	slog.Debug("published event",
		"event_type", eventType,
		"key", key,
		"partition", partition,
		"offset", offset)
}
