package services

import (
	"context"
	"strings"

	"github.com/openhealth/shared-backend/internal/clients/anthropic"
	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/resilience"
)

// meetingKeywords gates the classifier: messages mentioning none of these
// never reach the model.
var meetingKeywords = []string{"meeting", "schedule", "call", "discuss", "available"}

// MeetingIntent is the classified scheduling intent of one user message.
type MeetingIntent struct {
	Requested       bool     `json:"requested"`
	Urgency         string   `json:"urgency"`
	PreferredTimes  []string `json:"preferred_times"`
	MeetingType     string   `json:"meeting_type"`
	DurationMinutes int      `json:"duration"`
	AgendaItems     []string `json:"agenda_items"`
}

// MeetingIntentDetector decides whether a user message is asking to schedule
// a meeting. Detection is best-effort: any failure means "no meeting", never
// an error surfaced to the caller.
type MeetingIntentDetector interface {
	Detect(ctx context.Context, message string) *MeetingIntent
}

type meetingIntentDetector struct {
	log    *logger.Logger
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

func NewMeetingIntentDetector(baseLog *logger.Logger, client anthropic.Client, model string) MeetingIntentDetector {
	log := baseLog.With("service", "MeetingIntentDetector")
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	retry.ShouldRetry = anthropic.IsRetryable
	return &meetingIntentDetector{
		log:    log,
		client: client,
		model:  model,
		retry:  retry,
	}
}

func (d *meetingIntentDetector) Detect(ctx context.Context, message string) *MeetingIntent {
	if !mentionsMeeting(message) {
		return noMeeting()
	}

	temp := extractionTemperature
	resp, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     d.model,
			MaxTokens: 512,
			System:    meetingIntentSystemPrompt,
			Messages: []anthropic.Message{
				{Role: "user", Content: buildMeetingIntentPrompt(message)},
			},
			Temperature: &temp,
		})
	})
	if err != nil {
		d.log.Warn("Meeting intent classification failed", "error", err)
		return noMeeting()
	}

	raw, err := parseJSONObject(resp.Text())
	if err != nil {
		d.log.Warn("Meeting intent reply unparseable", "error", err)
		return noMeeting()
	}
	return intentFromJSON(raw)
}

func mentionsMeeting(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range meetingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func noMeeting() *MeetingIntent {
	return &MeetingIntent{
		Requested:       false,
		Urgency:         "low",
		MeetingType:     "discovery",
		DurationMinutes: 30,
	}
}

func intentFromJSON(raw map[string]any) *MeetingIntent {
	intent := noMeeting()

	if v, ok := raw["requested"].(bool); ok {
		intent.Requested = v
	}
	if v, ok := raw["urgency"].(string); ok {
		switch v {
		case "low", "medium", "high":
			intent.Urgency = v
		}
	}
	if v, ok := raw["meeting_type"].(string); ok {
		switch v {
		case "discovery", "pitch", "follow_up":
			intent.MeetingType = v
		}
	}
	if v, ok := raw["duration"].(float64); ok && v > 0 {
		intent.DurationMinutes = int(v)
	}
	intent.PreferredTimes = stringSlice(raw["preferred_times"])
	intent.AgendaItems = stringSlice(raw["agenda_items"])
	return intent
}

func stringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
