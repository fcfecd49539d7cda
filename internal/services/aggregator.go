package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

// Aggregator is the sole writer of venture extracted_data. It folds one
// extraction result into the conversation's venture: merge without erasing,
// then recompute the score in full from the merged attributes.
type Aggregator interface {
	// Apply merges result into the venture attached to the conversation,
	// creating the venture on first sighting. Creating requires a derivable
	// name; without one Apply fails with InsufficientDataError and the result
	// is discarded (the attributes will be re-extracted from the transcript
	// on a later turn).
	Apply(ctx context.Context, userID, conversationID uuid.UUID, result *ExtractionResult) (*types.Venture, error)
	// Rescore recomputes a venture's score from its current extracted_data
	// and the active weight set, without merging anything new.
	Rescore(ctx context.Context, ventureID uuid.UUID) (*types.Venture, error)
}

type aggregator struct {
	log     *logger.Logger
	repo    repos.VentureRepo
	scoring ScoringPolicy
}

func NewAggregator(baseLog *logger.Logger, repo repos.VentureRepo, scoring ScoringPolicy) Aggregator {
	return &aggregator{
		log:     baseLog.With("service", "Aggregator"),
		repo:    repo,
		scoring: scoring,
	}
}

func (a *aggregator) Apply(ctx context.Context, userID, conversationID uuid.UUID, result *ExtractionResult) (*types.Venture, error) {
	if result == nil || len(result.Attributes) == 0 {
		return nil, &InsufficientDataError{Reason: "extraction produced no attributes"}
	}

	venture, err := a.repo.GetByConversation(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}

	if venture == nil {
		name := deriveName(result.Attributes)
		if name == "" {
			return nil, &InsufficientDataError{Reason: "no venture name extracted yet"}
		}
		venture = &types.Venture{
			UserID:         userID,
			ConversationID: &conversationID,
			Name:           name,
			ExtractedData:  datatypes.JSONMap{},
			Status:         types.VentureStatusScreening,
		}
	}

	mergeAttributes(venture, result)

	if err := a.rescore(ctx, venture); err != nil {
		return nil, err
	}

	if venture.ID == uuid.Nil {
		venture, err = a.repo.Create(ctx, nil, venture)
	} else {
		venture, err = a.repo.Save(ctx, nil, venture)
	}
	if err != nil {
		return nil, err
	}

	a.log.Info("Venture updated",
		"venture_id", venture.ID,
		"schema_version", venture.SchemaVersion,
		"attributes", len(venture.ExtractedData),
		"score", scoreValue(venture.Score))
	return venture, nil
}

func (a *aggregator) Rescore(ctx context.Context, ventureID uuid.UUID) (*types.Venture, error) {
	venture, err := a.repo.GetByID(ctx, nil, ventureID)
	if err != nil {
		return nil, err
	}
	if venture == nil {
		return nil, fmt.Errorf("venture %s not found", ventureID)
	}
	if err := a.rescore(ctx, venture); err != nil {
		return nil, err
	}
	return a.repo.Save(ctx, nil, venture)
}

// mergeAttributes applies last-write-wins per key without ever erasing: keys
// already present survive unless the new result carries a replacement value.
func mergeAttributes(venture *types.Venture, result *ExtractionResult) {
	if venture.ExtractedData == nil {
		venture.ExtractedData = datatypes.JSONMap{}
	}
	for key, value := range result.Attributes {
		venture.ExtractedData[key] = value
	}
	if result.SchemaVersion > venture.SchemaVersion {
		venture.SchemaVersion = result.SchemaVersion
	}

	if name := deriveName(result.Attributes); name != "" {
		venture.Name = name
	}
	if desc, ok := result.Attributes["description"].(string); ok && desc != "" {
		venture.Description = desc
	}
}

// rescore recomputes score and breakdown in full from extracted_data.
func (a *aggregator) rescore(ctx context.Context, venture *types.Venture) error {
	weights, err := a.scoring.GetActiveWeights(ctx)
	if err != nil {
		return err
	}

	score, breakdown := a.scoring.ComputeScore(map[string]any(venture.ExtractedData), weights.Weights)
	venture.Score = &score
	bd := make(datatypes.JSONMap, len(breakdown))
	for category, entry := range breakdown {
		bd[category] = map[string]any{
			"weight":    entry.Weight,
			"sub_score": entry.SubScore,
			"state":     entry.State,
		}
	}
	venture.ScoreBreakdown = bd
	return nil
}

func deriveName(attrs map[string]any) string {
	if raw, ok := attrs["name"]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func scoreValue(score *int) int {
	if score == nil {
		return 0
	}
	return *score
}
