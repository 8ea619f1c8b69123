package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/pkg/logging"
)

// Voice intents, matched in this order
const (
	IntentWeather    = "weather"
	IntentYield      = "yield"
	IntentIrrigation = "irrigation"
	IntentMarket     = "market"
	IntentHelp       = "help"
)

// Canned voice replies
const (
	ReplyWeather    = "Today's weather shows 25 degrees Celsius with 60% chance of rain. Perfect conditions for your corn crop."
	ReplyYield      = "Your corn yield prediction is 8.5 tons per hectare this season, which is 15% above average."
	ReplyIrrigation = "Based on soil moisture levels, I recommend irrigating your north field tomorrow morning for 45 minutes."
	ReplyMarket     = "Current corn prices are $180 per ton. This is a good time to consider selling your harvest."
	ReplyHelp       = "I can help you with weather forecasts, yield predictions, irrigation advice, and market prices. What would you like to know?"
)

var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{IntentWeather, []string{"weather"}},
	{IntentYield, []string{"yield", "prediction"}},
	{IntentIrrigation, []string{"irrigation", "water"}},
	{IntentMarket, []string{"price", "market"}},
}

// VoiceReply is the assistant's answer to a transcript
type VoiceReply struct {
	Transcript string `json:"transcript"`
	Intent     string `json:"intent"`
	Response   string `json:"response"`
}

// VoiceService answers voice assistant transcripts
type VoiceService struct {
	repo   repository.PredictionRepository
	logger *logging.StructuredLogger
}

// NewVoiceService creates a new voice service
func NewVoiceService(repo repository.PredictionRepository, logger *logging.StructuredLogger) *VoiceService {
	return &VoiceService{repo: repo, logger: logger}
}

// ClassifyIntent returns the first intent whose keyword occurs in transcript, case-insensitively
func ClassifyIntent(transcript string) string {
	lower := strings.ToLower(transcript)
	for _, candidate := range intentKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lower, keyword) {
				return candidate.intent
			}
		}
	}
	return IntentHelp
}

// Dispatch classifies transcript and builds the reply.
// The yield reply describes the current prediction when there is one.
func (s *VoiceService) Dispatch(ctx context.Context, transcript string) (*VoiceReply, error) {
	reply := &VoiceReply{
		Transcript: transcript,
		Intent:     ClassifyIntent(transcript),
	}

	switch reply.Intent {
	case IntentWeather:
		reply.Response = ReplyWeather
	case IntentYield:
		response, err := s.yieldReply(ctx)
		if err != nil {
			return nil, err
		}
		reply.Response = response
	case IntentIrrigation:
		reply.Response = ReplyIrrigation
	case IntentMarket:
		reply.Response = ReplyMarket
	default:
		reply.Response = ReplyHelp
	}

	s.logger.Debug(ctx, "[VOICE_DISPATCH] Voice command handled", logging.Fields{
		"intent": reply.Intent,
	})

	return reply, nil
}

func (s *VoiceService) yieldReply(ctx context.Context) (string, error) {
	current, err := s.repo.GetCurrentPrediction(ctx)
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		return ReplyYield, nil
	}
	if err != nil {
		return "", err
	}
	return describePrediction(current), nil
}

func describePrediction(p *models.Prediction) string {
	return fmt.Sprintf("Your %s yield prediction is %.1f tons per hectare for the %s season.",
		strings.ToLower(string(p.Crop)), p.PredictedYield, strings.ToLower(string(p.Season)))
}
