package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/types"
)

func newTestSchemaStore(repo *memSchemaRepo, audit *memAuditRepo) SchemaStore {
	return NewSchemaStore(logger.NewNop(), repo, NewAuditService(logger.NewNop(), audit, nil, ""))
}

func TestGetActiveSchemaCached(t *testing.T) {
	repo := newMemSchemaRepo(testSchema())
	store := newTestSchemaStore(repo, &memAuditRepo{})
	ctx := context.Background()

	first, err := store.GetActiveSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Version)

	// Flipping the repo behind the cache does not change reads until the
	// store itself activates a new version.
	repo.mu.Lock()
	repo.schemas[0].Version = 99
	repo.mu.Unlock()

	again, err := store.GetActiveSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Version)
}

func TestGetActiveSchemaMissing(t *testing.T) {
	store := newTestSchemaStore(&memSchemaRepo{}, &memAuditRepo{})
	_, err := store.GetActiveSchema(context.Background())
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestCreateAndActivateVersion(t *testing.T) {
	repo := newMemSchemaRepo(testSchema())
	audit := &memAuditRepo{}
	store := newTestSchemaStore(repo, audit)
	ctx := context.Background()

	created, err := store.CreateVersion(ctx, "adds regulatory status", append(testSchema().Attributes, types.AttributeDef{
		Name: "regulatory_status", Type: types.AttrTypeEnum, Enum: []string{"none", "fda_pending", "fda_cleared"},
	}), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, created.Version)
	assert.False(t, created.IsActive)

	// Warm the cache on the old version, then activate the new one.
	_, err = store.GetActiveSchema(ctx)
	require.NoError(t, err)

	activated, err := store.Activate(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	current, err := store.GetActiveSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Version)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "extraction_schema.activate", audit.entries[0].Action)
}

func TestCreateVersionValidation(t *testing.T) {
	store := newTestSchemaStore(newMemSchemaRepo(testSchema()), &memAuditRepo{})
	ctx := context.Background()

	_, err := store.CreateVersion(ctx, "", nil, nil)
	assert.Error(t, err)

	_, err = store.CreateVersion(ctx, "", types.AttributeDefs{{Name: "x", Type: types.AttrTypeEnum}}, nil)
	assert.Error(t, err)

	_, err = store.CreateVersion(ctx, "", types.AttributeDefs{{Name: "x", Type: "blob"}}, nil)
	assert.Error(t, err)
}

func TestGetSchemaVersion(t *testing.T) {
	store := newTestSchemaStore(newMemSchemaRepo(testSchema()), &memAuditRepo{})
	ctx := context.Background()

	schema, err := store.GetSchemaVersion(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, schema.Version)

	_, err = store.GetSchemaVersion(ctx, 42)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}
