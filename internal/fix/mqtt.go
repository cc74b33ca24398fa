package fix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"geotification/internal/geo"
	"geotification/internal/logging"
)

const mqttBuffer = 64

// subscriber is the subset of mqtt.Client used by MQTTSource.
type subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSource subscribes to a topic carrying JSON position fixes. Payloads are
// either {"lat","lon","ts"} or the device form
// {"latitude","longitude","timestamp"} with a unix-seconds timestamp.
type MQTTSource struct {
	client subscriber
	topic  string
	qos    byte
}

// NewMQTTSource connects to broker (e.g. tcp://localhost:1883).
func NewMQTTSource(broker, clientID, topic string) (*MQTTSource, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTTSource{client: client, topic: topic, qos: 1}, nil
}

func (s *MQTTSource) Run(ctx context.Context, out chan<- geo.Fix) error {
	log := logging.FromContext(ctx)
	fixes := make(chan geo.Fix, mqttBuffer)

	token := s.client.Subscribe(s.topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		f, err := decodeDeviceFix(msg.Payload())
		if err != nil {
			log.Warn("invalid fix message", "error", err, "topic", msg.Topic())
			return
		}
		select {
		case fixes <- f:
		default:
			log.Warn("fix buffer full, dropping message", "topic", msg.Topic())
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.topic, err)
	}
	defer s.client.Unsubscribe(s.topic)
	log.Info("subscribed", "topic", s.topic)

	for {
		select {
		case f := <-fixes:
			if err := send(ctx, out, f); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *MQTTSource) Close() error {
	s.client.Disconnect(250)
	return nil
}

type deviceFix struct {
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	TS        time.Time `json:"ts"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Timestamp int64     `json:"timestamp"`
}

func decodeDeviceFix(payload []byte) (geo.Fix, error) {
	var d deviceFix
	if err := json.Unmarshal(payload, &d); err != nil {
		return geo.Fix{}, err
	}
	switch {
	case d.Lat != nil && d.Lon != nil:
		return geo.Fix{Coordinate: geo.Coordinate{Lat: *d.Lat, Lon: *d.Lon}, Timestamp: d.TS}, nil
	case d.Latitude != nil && d.Longitude != nil:
		f := geo.Fix{Coordinate: geo.Coordinate{Lat: *d.Latitude, Lon: *d.Longitude}}
		if d.Timestamp > 0 {
			f.Timestamp = time.Unix(d.Timestamp, 0).UTC()
		}
		return f, nil
	default:
		return geo.Fix{}, errors.New("payload has no coordinate")
	}
}
