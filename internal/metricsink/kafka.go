package metricsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

const DefaultKafkaTopic = "uptime-metrics"

// Event is the JSON document published per check.
type Event struct {
	MonitorID domain.MonitorID   `json:"monitor_id"`
	Monitor   string             `json:"monitor"`
	Metrics   map[string]float64 `json:"metrics"`
	Timestamp int64              `json:"timestamp"`
}

// Kafka publishes one Event per check, keyed by monitor name so a
// monitor's events stay ordered within a partition.
type Kafka struct {
	writer *kafka.Writer
	now    func() time.Time
}

func NewKafka(brokers []string, topic string) *Kafka {
	if len(brokers) == 0 {
		return nil
	}
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		now: time.Now,
	}
}

func (k *Kafka) Send(ctx context.Context, target Target, metrics map[string]float64) error {
	if k == nil {
		return nil
	}
	msg, err := eventMessage(target, metrics, k.now())
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func eventMessage(target Target, metrics map[string]float64, at time.Time) (kafka.Message, error) {
	payload, err := json.Marshal(Event{
		MonitorID: target.ID,
		Monitor:   target.Name,
		Metrics:   metrics,
		Timestamp: at.Unix(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{Key: []byte(target.Name), Value: payload, Time: at}, nil
}

func (k *Kafka) Close() error {
	if k == nil {
		return nil
	}
	return k.writer.Close()
}
