package fix

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"geotification/internal/geo"
	"geotification/internal/logging"
)

// messageReader is the subset of *kafka.Reader used by KafkaSource.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes JSON fixes from a Kafka topic. Messages that do not
// decode are logged, committed and skipped.
type KafkaSource struct {
	reader messageReader
}

func NewKafkaSource(brokers []string, topic, groupID string) *KafkaSource {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
	return &KafkaSource{reader: r}
}

func (s *KafkaSource) Run(ctx context.Context, out chan<- geo.Fix) error {
	log := logging.FromContext(ctx)
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return err
		}

		var f geo.Fix
		if err := json.Unmarshal(msg.Value, &f); err != nil {
			log.Warn("invalid fix message", "error", err, "offset", msg.Offset)
		} else if err := send(ctx, out, f); err != nil {
			return err
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit failed", "error", err, "offset", msg.Offset)
		}
	}
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
