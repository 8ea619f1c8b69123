package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-insights/internal/models"
)

func testEvent() *PredictionEvent {
	return NewPredictionEvent(&models.Prediction{
		ID:             17,
		Crop:           models.CropRice,
		Season:         models.SeasonSummer,
		SoilType:       models.SoilLoam,
		Location:       "north-field",
		PredictedYield: 7.42,
		CreatedAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}, "req-1")
}

func TestKafkaPublisher_PublishPrediction(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var got PredictionEvent
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.PredictionID != 17 || got.Crop != models.CropRice || got.RequestID != "req-1" {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	publisher := NewKafkaPublisherWithProducer(producer, "yield-predictions")
	require.NoError(t, publisher.PublishPrediction(context.Background(), testEvent()))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisherWithProducer(producer, "yield-predictions")
	err := publisher.PublishPrediction(context.Background(), testEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, "yield-predictions")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, publisher.PublishPrediction(ctx, testEvent()), context.Canceled)
	require.NoError(t, publisher.Close())
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishPrediction(context.Background(), testEvent()))
	assert.NoError(t, p.Close())
}
