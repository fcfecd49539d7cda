package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealth/shared-backend/internal/clients/anthropic"
	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/resilience"
	"github.com/openhealth/shared-backend/internal/types"
)

func testSchema() *types.ExtractionSchema {
	return &types.ExtractionSchema{
		Name:    "venture",
		Version: 3,
		Attributes: types.AttributeDefs{
			{Name: "name", Type: types.AttrTypeString},
			{Name: "description", Type: types.AttrTypeString},
			{Name: "stage", Type: types.AttrTypeEnum, Enum: []string{"idea", "mvp", "early_stage", "growth"}},
			{Name: "market_size", Type: types.AttrTypeEnum, Enum: []string{"small", "medium", "large", "massive"}},
			{Name: "funding_status", Type: types.AttrTypeEnum, Enum: []string{"bootstrapped", "pre_seed", "seed", "series_a", "later"}},
			{Name: "team_size", Type: types.AttrTypeInteger},
			{Name: "location", Type: types.AttrTypeString},
		},
	}
}

func newTestExtractor(client anthropic.Client) Extractor {
	e := NewExtractor(logger.NewNop(), client, "claude-test", 2).(*extractor)
	// No sleeping in tests.
	e.retry.InitialBackoff = 0
	e.retry.MaxBackoff = 0
	return e
}

func transcript() []anthropic.Message {
	return []anthropic.Message{
		{Role: "user", Content: "We're building CareLoop, a remote monitoring platform. Team of 3, just shipped our MVP."},
	}
}

func TestExtractValidReply(t *testing.T) {
	client := newStubClient(reply(`{"name": "CareLoop", "stage": "mvp", "team_size": 3, "location": null}`))
	result, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.NoError(t, err)

	assert.Equal(t, 3, result.SchemaVersion)
	assert.Equal(t, "CareLoop", result.Attributes["name"])
	assert.Equal(t, "mvp", result.Attributes["stage"])
	assert.Equal(t, 3, result.Attributes["team_size"])
	// Nulls are skipped silently, not surfaced as warnings.
	assert.NotContains(t, result.Attributes, "location")
	assert.Empty(t, result.Warnings)
}

func TestExtractStripsSurroundingProse(t *testing.T) {
	client := newStubClient(reply("Here is what I found:\n```json\n{\"name\": \"CareLoop\"}\n```\nLet me know if you need more."))
	result, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.NoError(t, err)
	assert.Equal(t, "CareLoop", result.Attributes["name"])
}

func TestExtractDropsInvalidFields(t *testing.T) {
	client := newStubClient(reply(`{
		"stage": "prototype",
		"team_size": "three",
		"market_size": "LARGE",
		"revenue": 100000,
		"name": "  CareLoop  "
	}`))
	result, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.NoError(t, err)

	// Enum values normalize case; truly invalid values drop with a warning.
	assert.Equal(t, "large", result.Attributes["market_size"])
	assert.Equal(t, "CareLoop", result.Attributes["name"])
	assert.NotContains(t, result.Attributes, "stage")
	assert.NotContains(t, result.Attributes, "team_size")
	assert.NotContains(t, result.Attributes, "revenue")

	fields := make(map[string]bool)
	for _, w := range result.Warnings {
		fields[w.Field] = true
	}
	assert.True(t, fields["stage"])
	assert.True(t, fields["team_size"])
	assert.True(t, fields["revenue"])
}

func TestExtractUnparseableReply(t *testing.T) {
	client := newStubClient(reply("I could not determine any structured attributes."))
	_, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.Error(t, err)
	assert.True(t, IsExtractionError(err))
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	client := newStubClient(
		fail(&resilience.TransientError{Err: errors.New("overloaded"), StatusCode: 529}),
		fail(&resilience.TransientError{Err: errors.New("overloaded"), StatusCode: 529}),
		reply(`{"name": "CareLoop"}`),
	)
	result, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.NoError(t, err)
	assert.Equal(t, "CareLoop", result.Attributes["name"])
	assert.Equal(t, 3, client.callCount())
}

func TestExtractGivesUpAfterRetries(t *testing.T) {
	client := newStubClient(fail(&resilience.TransientError{Err: errors.New("overloaded"), StatusCode: 529}))
	_, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.Error(t, err)
	assert.True(t, IsExtractionError(err))
	assert.Equal(t, 3, client.callCount())
}

func TestExtractDoesNotRetryPermanentFailures(t *testing.T) {
	client := newStubClient(fail(errors.New("invalid api key")))
	_, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.Error(t, err)
	assert.True(t, IsExtractionError(err))
	assert.Equal(t, 1, client.callCount())
}

func TestExtractUsesLowTemperature(t *testing.T) {
	client := newStubClient(reply(`{"name": "CareLoop"}`))
	_, err := newTestExtractor(client).Extract(context.Background(), testSchema(), transcript())
	require.NoError(t, err)

	req := client.lastCall()
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.1, *req.Temperature, 1e-9)
	assert.Equal(t, int64(extractionMaxTokens), req.MaxTokens)
	assert.Equal(t, extractionSystemPrompt, req.System)
}
