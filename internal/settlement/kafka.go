package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic receives refund instructions for the payout worker.
const DefaultTopic = "profilecheck.refunds"

// Producer is the slice of *kgo.Client the transferer needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaTransferer publishes transfers as JSON records keyed by recipient, so
// every refund to one account lands on the same partition in order.
type KafkaTransferer struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaTransferer publishes to topic, or DefaultTopic when empty.
func NewKafkaTransferer(producer Producer, topic string, logger *slog.Logger) *KafkaTransferer {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaTransferer{producer: producer, topic: topic, logger: logger}
}

func (k *KafkaTransferer) Transfer(ctx context.Context, t Transfer) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transfer: %w", err)
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(t.Recipient),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "reason", Value: []byte(t.Reason)},
		},
	}
	if err := k.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		k.logger.ErrorContext(ctx, "failed to publish transfer",
			"transfer_id", t.ID,
			"recipient", t.Recipient,
			"error", err,
		)
		return fmt.Errorf("publish transfer %s: %w", t.ID, err)
	}
	return nil
}
