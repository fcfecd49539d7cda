package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openhealth/shared-backend/internal/clients/anthropic"
	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/resilience"
	"github.com/openhealth/shared-backend/internal/types"
)

// Extraction runs at near-zero temperature with a tight token budget: the
// reply is a JSON object, not prose.
const (
	extractionTemperature = 0.1
	extractionMaxTokens   = 1024
)

// ExtractionResult is the validated output of one extraction pass.
type ExtractionResult struct {
	// Attributes holds only schema-valid values. Keys absent from the
	// conversation are absent here, never null.
	Attributes map[string]any
	// SchemaVersion records which schema version produced this result.
	SchemaVersion int
	// Warnings lists fields the model returned but validation dropped.
	Warnings []FieldWarning
}

// Extractor turns a conversation transcript into structured venture
// attributes according to an extraction schema.
type Extractor interface {
	Extract(ctx context.Context, schema *types.ExtractionSchema, transcript []anthropic.Message) (*ExtractionResult, error)
}

type extractor struct {
	log    *logger.Logger
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

func NewExtractor(baseLog *logger.Logger, client anthropic.Client, model string, maxRetries int) Extractor {
	log := baseLog.With("service", "Extractor")
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = maxRetries + 1
	retry.ShouldRetry = anthropic.IsRetryable
	retry.OnRetry = func(attempt int, err error) {
		log.Warn("Retrying extraction call", "attempt", attempt, "error", err)
	}
	return &extractor{
		log:    log,
		client: client,
		model:  model,
		retry:  retry,
	}
}

func (e *extractor) Extract(ctx context.Context, schema *types.ExtractionSchema, transcript []anthropic.Message) (*ExtractionResult, error) {
	if len(transcript) == 0 {
		return nil, &ExtractionError{Err: fmt.Errorf("empty transcript")}
	}

	temp := extractionTemperature
	messages := make([]anthropic.Message, 0, len(transcript)+1)
	messages = append(messages, transcript...)
	messages = append(messages, anthropic.Message{
		Role:    "user",
		Content: buildExtractionPrompt(schema),
	})

	start := time.Now()
	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       e.model,
			MaxTokens:   extractionMaxTokens,
			System:      extractionSystemPrompt,
			Messages:    messages,
			Temperature: &temp,
		})
	})
	if err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("extraction call failed: %w", err)}
	}

	raw, err := parseJSONObject(resp.Text())
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	attrs, warnings := validateAttributes(schema, raw)
	e.log.Debug("Extraction complete",
		"schema_version", schema.Version,
		"attributes", len(attrs),
		"warnings", len(warnings),
		"duration_ms", time.Since(start).Milliseconds())

	return &ExtractionResult{
		Attributes:    attrs,
		SchemaVersion: schema.Version,
		Warnings:      warnings,
	}, nil
}

// parseJSONObject pulls the outermost {...} window out of the model reply and
// decodes it. Models sometimes wrap JSON in prose or code fences; everything
// outside the brace window is ignored.
func parseJSONObject(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in extraction reply")
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("malformed JSON in extraction reply: %w", err)
	}
	return raw, nil
}

// validateAttributes checks every returned key against the schema. Invalid
// values are dropped with a warning; nulls and empty strings are skipped
// silently, since the model uses them to mean "not mentioned".
func validateAttributes(schema *types.ExtractionSchema, raw map[string]any) (map[string]any, []FieldWarning) {
	attrs := make(map[string]any, len(raw))
	var warnings []FieldWarning

	for key, value := range raw {
		def := schema.Attributes.Find(key)
		if def == nil {
			warnings = append(warnings, FieldWarning{Field: key, Reason: "not in schema"})
			continue
		}
		if value == nil {
			continue
		}

		switch def.Type {
		case types.AttrTypeString:
			s, ok := value.(string)
			if !ok {
				warnings = append(warnings, FieldWarning{Field: key, Reason: fmt.Sprintf("expected string, got %T", value)})
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			attrs[key] = s

		case types.AttrTypeEnum:
			s, ok := value.(string)
			if !ok {
				warnings = append(warnings, FieldWarning{Field: key, Reason: fmt.Sprintf("expected string, got %T", value)})
				continue
			}
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if !containsString(def.Enum, s) {
				warnings = append(warnings, FieldWarning{Field: key, Reason: fmt.Sprintf("%q not in enum", s)})
				continue
			}
			attrs[key] = s

		case types.AttrTypeInteger:
			f, ok := value.(float64)
			if !ok || f != math.Trunc(f) {
				warnings = append(warnings, FieldWarning{Field: key, Reason: fmt.Sprintf("expected integer, got %v", value)})
				continue
			}
			attrs[key] = int(f)

		case types.AttrTypeObject:
			m, ok := value.(map[string]any)
			if !ok {
				warnings = append(warnings, FieldWarning{Field: key, Reason: fmt.Sprintf("expected object, got %T", value)})
				continue
			}
			if len(m) == 0 {
				continue
			}
			attrs[key] = m

		default:
			warnings = append(warnings, FieldWarning{Field: key, Reason: fmt.Sprintf("unknown attribute type %q", def.Type)})
		}
	}

	return attrs, warnings
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
