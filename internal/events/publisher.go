package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Shopify/sarama"

	"agri-insights/internal/config"
	"agri-insights/internal/models"
)

// PredictionEvent is the message published for every stored prediction
type PredictionEvent struct {
	PredictionID   int64           `json:"prediction_id"`
	Crop           models.Crop     `json:"crop"`
	Season         models.Season   `json:"season"`
	SoilType       models.SoilType `json:"soil_type,omitempty"`
	Location       string          `json:"location,omitempty"`
	PredictedYield float64         `json:"predicted_yield"`
	RequestID      string          `json:"request_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewPredictionEvent builds the event for a stored prediction
func NewPredictionEvent(p *models.Prediction, requestID string) *PredictionEvent {
	return &PredictionEvent{
		PredictionID:   p.ID,
		Crop:           p.Crop,
		Season:         p.Season,
		SoilType:       p.SoilType,
		Location:       p.Location,
		PredictedYield: p.PredictedYield,
		RequestID:      requestID,
		OccurredAt:     p.CreatedAt,
	}
}

// Publisher delivers prediction events
type Publisher interface {
	PublishPrediction(ctx context.Context, event *PredictionEvent) error
	Close() error
}

// KafkaPublisher publishes prediction events to a Kafka topic, keyed by prediction ID
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to the configured brokers
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Timeout = cfg.Timeout

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, cfg.Topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishPrediction sends event and waits for the broker acknowledgement
func (p *KafkaPublisher) PublishPrediction(ctx context.Context, event *PredictionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode prediction event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.PredictionID, 10)),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish prediction event: %w", err)
	}

	return nil
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher discards events; used when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) PublishPrediction(ctx context.Context, event *PredictionEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
