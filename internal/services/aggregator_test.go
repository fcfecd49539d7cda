package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealth/shared-backend/internal/platform/logger"
)

func newTestAggregator(t *testing.T) (Aggregator, *memVentureRepo) {
	t.Helper()
	ventures := newMemVentureRepo()
	weights := newMemWeightsRepo(defaultWeights())
	scoring := NewScoringPolicy(logger.NewNop(), weights, NewAuditService(logger.NewNop(), nil, nil, ""))
	return NewAggregator(logger.NewNop(), ventures, scoring), ventures
}

func TestApplyCreatesVentureOnFirstExtraction(t *testing.T) {
	agg, _ := newTestAggregator(t)
	userID, convID := uuid.New(), uuid.New()

	venture, err := agg.Apply(context.Background(), userID, convID, &ExtractionResult{
		Attributes:    map[string]any{"name": "CareLoop", "stage": "mvp"},
		SchemaVersion: 1,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, venture.ID)
	assert.Equal(t, "CareLoop", venture.Name)
	assert.Equal(t, userID, venture.UserID)
	require.NotNil(t, venture.ConversationID)
	assert.Equal(t, convID, *venture.ConversationID)
	assert.Equal(t, 1, venture.SchemaVersion)
	require.NotNil(t, venture.Score)
	// traction (0.5 from mvp) and innovation (0.5) contribute; market and
	// team are unknown: 0.25*0.5 + 0.2*0.5 = 0.225 -> 23.
	assert.Equal(t, 23, *venture.Score)
}

func TestApplyRequiresNameToCreate(t *testing.T) {
	agg, ventures := newTestAggregator(t)

	_, err := agg.Apply(context.Background(), uuid.New(), uuid.New(), &ExtractionResult{
		Attributes:    map[string]any{"stage": "mvp"},
		SchemaVersion: 1,
	})
	require.Error(t, err)
	assert.True(t, IsInsufficientDataError(err))
	assert.Empty(t, ventures.ventures)
}

func TestApplyMergesWithoutErasing(t *testing.T) {
	agg, _ := newTestAggregator(t)
	userID, convID := uuid.New(), uuid.New()
	ctx := context.Background()

	_, err := agg.Apply(ctx, userID, convID, &ExtractionResult{
		Attributes:    map[string]any{"name": "CareLoop", "stage": "mvp", "team_size": 3},
		SchemaVersion: 1,
	})
	require.NoError(t, err)

	// Second pass mentions new attributes but not the old ones.
	venture, err := agg.Apply(ctx, userID, convID, &ExtractionResult{
		Attributes:    map[string]any{"market_size": "large", "stage": "early_stage"},
		SchemaVersion: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "CareLoop", venture.Name)
	assert.Equal(t, 3, venture.ExtractedData["team_size"])   // survived
	assert.Equal(t, "early_stage", venture.ExtractedData["stage"]) // overwritten
	assert.Equal(t, "large", venture.ExtractedData["market_size"]) // added
}

func TestApplyRecomputesScoreInFull(t *testing.T) {
	agg, ventures := newTestAggregator(t)
	userID, convID := uuid.New(), uuid.New()
	ctx := context.Background()

	first, err := agg.Apply(ctx, userID, convID, &ExtractionResult{
		Attributes:    map[string]any{"name": "CareLoop", "market_size": "small"},
		SchemaVersion: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, first.Score)
	firstScore := *first.Score

	second, err := agg.Apply(ctx, userID, convID, &ExtractionResult{
		Attributes:    map[string]any{"market_size": "massive", "team_size": 20},
		SchemaVersion: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, second.Score)

	// Score reflects the merged state, not a delta on the old score.
	assert.Greater(t, *second.Score, firstScore)
	assert.Equal(t, 55, *second.Score) // 0.3*1.0 + 0.25*1.0

	stored, err := ventures.GetByConversation(ctx, nil, convID)
	require.NoError(t, err)
	assert.Equal(t, *second.Score, *stored.Score)
	assert.Contains(t, stored.ScoreBreakdown, CategoryMarketSize)
}

func TestApplyIsIdempotentForSameResult(t *testing.T) {
	agg, _ := newTestAggregator(t)
	userID, convID := uuid.New(), uuid.New()
	ctx := context.Background()
	result := &ExtractionResult{
		Attributes:    map[string]any{"name": "CareLoop", "stage": "growth", "market_size": "large"},
		SchemaVersion: 2,
	}

	first, err := agg.Apply(ctx, userID, convID, result)
	require.NoError(t, err)
	second, err := agg.Apply(ctx, userID, convID, result)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, *first.Score, *second.Score)
	assert.Equal(t, first.ExtractedData, second.ExtractedData)
}

func TestApplyEmptyResult(t *testing.T) {
	agg, _ := newTestAggregator(t)
	_, err := agg.Apply(context.Background(), uuid.New(), uuid.New(), &ExtractionResult{SchemaVersion: 1})
	require.Error(t, err)
	assert.True(t, IsInsufficientDataError(err))
}

func TestApplyPromotesDescription(t *testing.T) {
	agg, _ := newTestAggregator(t)
	venture, err := agg.Apply(context.Background(), uuid.New(), uuid.New(), &ExtractionResult{
		Attributes: map[string]any{
			"name":        "CareLoop",
			"description": "Remote patient monitoring for cardiac rehab",
		},
		SchemaVersion: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Remote patient monitoring for cardiac rehab", venture.Description)
}
