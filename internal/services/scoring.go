package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

// DefaultWeightsName is the weight set every venture is scored against.
const DefaultWeightsName = "venture"

// Scoring categories. Each maps onto one or more extracted attributes.
const (
	CategoryMarketSize = "market_size"
	CategoryTeam       = "team"
	CategoryTraction   = "traction"
	CategoryInnovation = "innovation"
)

const weightSumEpsilon = 0.001

// CategoryBreakdown is the per-category entry recorded alongside a score.
type CategoryBreakdown struct {
	Weight   float64 `json:"weight"`
	SubScore float64 `json:"sub_score"`
	State    string  `json:"state"` // "computed" or "unknown"
}

// ScoringPolicy computes venture scores from extracted attributes and an
// active weight set. Scoring is pure arithmetic over the inputs: the same
// attributes and weights always produce the same score.
type ScoringPolicy interface {
	GetActiveWeights(ctx context.Context) (*types.ScoringWeights, error)
	// ComputeScore returns a 0-100 integer score plus the per-category
	// breakdown. Categories whose attributes are missing contribute zero and
	// are marked unknown rather than failing the computation.
	ComputeScore(attrs map[string]any, weights types.WeightMap) (int, map[string]CategoryBreakdown)
	// CreateWeights stores a new inactive weight set after validating that the
	// weights sum to 1.0.
	CreateWeights(ctx context.Context, weights types.WeightMap, createdBy *uuid.UUID) (*types.ScoringWeights, error)
	// Activate swaps the active weight set and emits an audit event. Existing
	// venture scores are not retroactively recomputed.
	Activate(ctx context.Context, weightsID uuid.UUID, adminID *uuid.UUID) (*types.ScoringWeights, error)
	List(ctx context.Context) ([]*types.ScoringWeights, error)
}

type scoringPolicy struct {
	log   *logger.Logger
	repo  repos.ScoringWeightsRepo
	audit AuditService

	active atomic.Pointer[types.ScoringWeights]
	group  singleflight.Group
}

func NewScoringPolicy(baseLog *logger.Logger, repo repos.ScoringWeightsRepo, audit AuditService) ScoringPolicy {
	return &scoringPolicy{
		log:   baseLog.With("service", "ScoringPolicy"),
		repo:  repo,
		audit: audit,
	}
}

func (s *scoringPolicy) GetActiveWeights(ctx context.Context) (*types.ScoringWeights, error) {
	if cached := s.active.Load(); cached != nil {
		return cached, nil
	}
	v, err, _ := s.group.Do("active", func() (interface{}, error) {
		row, err := s.repo.GetActive(ctx, nil, DefaultWeightsName)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, &ConfigurationError{Resource: "scoring_weights", Err: fmt.Errorf("no active weight set named %q", DefaultWeightsName)}
		}
		s.active.Store(row)
		return row, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.ScoringWeights), nil
}

func (s *scoringPolicy) CreateWeights(ctx context.Context, weights types.WeightMap, createdBy *uuid.UUID) (*types.ScoringWeights, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("weight set is empty")
	}
	for category, w := range weights {
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("weight for %q out of range: %v", category, w)
		}
	}
	if !weights.SumsToOne(weightSumEpsilon) {
		return nil, fmt.Errorf("weights must sum to 1.0")
	}
	return s.repo.Create(ctx, nil, &types.ScoringWeights{
		Name:      DefaultWeightsName,
		Weights:   weights,
		CreatedBy: createdBy,
	})
}

func (s *scoringPolicy) Activate(ctx context.Context, weightsID uuid.UUID, adminID *uuid.UUID) (*types.ScoringWeights, error) {
	activated, previous, err := s.repo.Activate(ctx, weightsID)
	if err != nil {
		return nil, err
	}
	s.active.Store(activated)

	old := map[string]any{}
	if previous != nil {
		old["weights_id"] = previous.ID.String()
	}
	s.audit.Record(ctx, AuditEvent{
		Action:       "scoring_weights.activate",
		ResourceType: "scoring_weights",
		ResourceID:   &activated.ID,
		AdminUserID:  adminID,
		OldValues:    old,
		NewValues:    map[string]any{"weights_id": activated.ID.String()},
	})

	s.log.Info("Scoring weights activated", "weights_id", activated.ID)
	return activated, nil
}

func (s *scoringPolicy) List(ctx context.Context) ([]*types.ScoringWeights, error) {
	return s.repo.List(ctx, nil, DefaultWeightsName)
}

func (s *scoringPolicy) ComputeScore(attrs map[string]any, weights types.WeightMap) (int, map[string]CategoryBreakdown) {
	breakdown := make(map[string]CategoryBreakdown, len(weights))
	var total float64

	for category, weight := range weights {
		sub, known := categorySubScore(category, attrs)
		entry := CategoryBreakdown{Weight: weight, State: "unknown"}
		if known {
			entry.SubScore = sub
			entry.State = "computed"
			total += weight * sub
		}
		breakdown[category] = entry
	}

	// Round half up so e.g. 57.5 -> 58.
	score := int(math.Floor(total*100 + 0.5))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, breakdown
}

// categorySubScore maps one scoring category onto the extracted attributes,
// returning a value in [0,1] and whether the inputs were present.
func categorySubScore(category string, attrs map[string]any) (float64, bool) {
	switch category {
	case CategoryMarketSize:
		return enumSubScore(attrs, "market_size", map[string]float64{
			"small":   0.25,
			"medium":  0.5,
			"large":   0.75,
			"massive": 1.0,
		})
	case CategoryTeam:
		n, ok := intAttr(attrs, "team_size")
		if !ok {
			return 0, false
		}
		return teamSizeSubScore(n), true
	case CategoryTraction:
		// Traction blends how far along funding and product stage are. Either
		// signal alone still yields a score.
		funding, fOK := enumSubScore(attrs, "funding_status", map[string]float64{
			"bootstrapped": 0.2,
			"pre_seed":     0.4,
			"seed":         0.6,
			"series_a":     0.8,
			"later":        1.0,
		})
		stage, sOK := stageSubScore(attrs)
		switch {
		case fOK && sOK:
			return (funding + stage) / 2, true
		case fOK:
			return funding, true
		case sOK:
			return stage, true
		default:
			return 0, false
		}
	case CategoryInnovation:
		return stageSubScore(attrs)
	default:
		return 0, false
	}
}

func stageSubScore(attrs map[string]any) (float64, bool) {
	return enumSubScore(attrs, "stage", map[string]float64{
		"idea":        0.25,
		"mvp":         0.5,
		"early_stage": 0.75,
		"growth":      1.0,
	})
}

func teamSizeSubScore(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 0.25
	case n <= 4:
		return 0.5
	case n <= 14:
		return 0.75
	default:
		return 1.0
	}
}

func enumSubScore(attrs map[string]any, key string, table map[string]float64) (float64, bool) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return 0, false
	}
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	v, ok := table[s]
	return v, ok
}

func intAttr(attrs map[string]any, key string) (int, bool) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		// JSON numbers decode as float64.
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
