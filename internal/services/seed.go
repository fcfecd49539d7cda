package services

import (
	"context"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

// defaultSchemaAttributes is version 1 of the venture schema, installed on
// first boot. Later versions are created and activated through the admin API.
func defaultSchemaAttributes() types.AttributeDefs {
	return types.AttributeDefs{
		{Name: "name", Type: types.AttrTypeString, Description: "venture name"},
		{Name: "description", Type: types.AttrTypeString, Description: "brief description of the venture"},
		{Name: "stage", Type: types.AttrTypeEnum, Enum: []string{"idea", "mvp", "early_stage", "growth"}},
		{Name: "market_size", Type: types.AttrTypeEnum, Enum: []string{"small", "medium", "large", "massive"}},
		{Name: "funding_status", Type: types.AttrTypeEnum, Enum: []string{"bootstrapped", "pre_seed", "seed", "series_a", "later"}},
		{Name: "team_size", Type: types.AttrTypeInteger, Description: "number of people on the team"},
		{Name: "location", Type: types.AttrTypeString, Description: "location if mentioned"},
	}
}

func defaultWeightMap() types.WeightMap {
	return types.WeightMap{
		CategoryMarketSize: 0.3,
		CategoryTeam:       0.25,
		CategoryTraction:   0.25,
		CategoryInnovation: 0.2,
	}
}

// SeedDefaults installs the default extraction schema and scoring weights if
// none are active yet. Safe to run on every boot.
func SeedDefaults(ctx context.Context, log *logger.Logger, schemas repos.ExtractionSchemaRepo, weights repos.ScoringWeightsRepo) error {
	active, err := schemas.GetActive(ctx, nil, DefaultSchemaName)
	if err != nil {
		return err
	}
	if active == nil {
		created, err := schemas.Create(ctx, nil, &types.ExtractionSchema{
			Name:        DefaultSchemaName,
			Description: "Default healthcare venture screening schema",
			Version:     1,
			Attributes:  defaultSchemaAttributes(),
		})
		if err != nil {
			return err
		}
		if _, _, err := schemas.Activate(ctx, created.ID); err != nil {
			return err
		}
		log.Info("Seeded default extraction schema", "schema_id", created.ID)
	}

	activeWeights, err := weights.GetActive(ctx, nil, DefaultWeightsName)
	if err != nil {
		return err
	}
	if activeWeights == nil {
		created, err := weights.Create(ctx, nil, &types.ScoringWeights{
			Name:    DefaultWeightsName,
			Weights: defaultWeightMap(),
		})
		if err != nil {
			return err
		}
		if _, _, err := weights.Activate(ctx, created.ID); err != nil {
			return err
		}
		log.Info("Seeded default scoring weights", "weights_id", created.ID)
	}
	return nil
}
