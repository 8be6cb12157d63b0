package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink appends events to a Kafka topic keyed by raffle, so one
// raffle's trail stays ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	logger *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, logger: logger}, nil
}

// Append produces asynchronously. Delivery failures are logged, not
// returned; the trail is best-effort by design of the callers.
func (s *KafkaSink) Append(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(e.RaffleID.String()),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("audit event delivery failed",
				"action", e.Action,
				"ticket_id", e.TicketID.String(),
				"error", err.Error(),
			)
		}
	})
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
