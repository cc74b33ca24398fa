package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"geotification/internal/geofence"
)

// messageWriter is the subset of *kafka.Writer used by KafkaWriter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes events to a Kafka topic, keyed by region identifier
// so per-region order is kept within a partition.
type KafkaWriter struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaWriter(brokers []string, topic string) *KafkaWriter {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaWriter{writer: w, timeout: 5 * time.Second}
}

func (k *KafkaWriter) WriteEvent(e geofence.Event) error {
	return k.WriteEvents([]geofence.Event{e})
}

func (k *KafkaWriter) WriteEvents(events []geofence.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		key := e.Identifier
		if key == "" {
			key = e.Session
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(key),
			Value: data,
			Time:  e.Timestamp,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
			},
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, msgs...)
}

func (k *KafkaWriter) Close() error {
	return k.writer.Close()
}
