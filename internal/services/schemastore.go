package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

// DefaultSchemaName is the logical schema every extraction runs against.
const DefaultSchemaName = "venture"

// SchemaStore serves versioned extraction schemas. The active schema is held
// in an atomically swapped pointer so concurrent readers never observe a
// half-updated definition; activation goes through the repo transaction and
// then swaps the pointer.
type SchemaStore interface {
	// GetActiveSchema fails with ConfigurationError if no version is active.
	GetActiveSchema(ctx context.Context) (*types.ExtractionSchema, error)
	// GetSchemaVersion fetches a historical version for reproducing past
	// extractions.
	GetSchemaVersion(ctx context.Context, version int) (*types.ExtractionSchema, error)
	// CreateVersion stores a new immutable version (MaxVersion+1) of the
	// default schema.
	CreateVersion(ctx context.Context, description string, attrs types.AttributeDefs, createdBy *uuid.UUID) (*types.ExtractionSchema, error)
	// Activate atomically deactivates the currently active version of the same
	// name and activates the given one. Emits an audit event.
	Activate(ctx context.Context, schemaID uuid.UUID, adminID *uuid.UUID) (*types.ExtractionSchema, error)
	// List returns all versions of the default schema, newest first.
	List(ctx context.Context) ([]*types.ExtractionSchema, error)
}

type schemaStore struct {
	log   *logger.Logger
	repo  repos.ExtractionSchemaRepo
	audit AuditService

	active atomic.Pointer[types.ExtractionSchema]
	group  singleflight.Group
}

func NewSchemaStore(baseLog *logger.Logger, repo repos.ExtractionSchemaRepo, audit AuditService) SchemaStore {
	return &schemaStore{
		log:   baseLog.With("service", "SchemaStore"),
		repo:  repo,
		audit: audit,
	}
}

func (s *schemaStore) GetActiveSchema(ctx context.Context) (*types.ExtractionSchema, error) {
	if cached := s.active.Load(); cached != nil {
		return cached, nil
	}

	// Collapse concurrent cold-cache loads into one query.
	v, err, _ := s.group.Do("active", func() (interface{}, error) {
		schema, err := s.repo.GetActive(ctx, nil, DefaultSchemaName)
		if err != nil {
			return nil, err
		}
		if schema == nil {
			return nil, &ConfigurationError{Resource: "extraction_schema", Err: fmt.Errorf("no active schema named %q", DefaultSchemaName)}
		}
		s.active.Store(schema)
		return schema, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.ExtractionSchema), nil
}

func (s *schemaStore) GetSchemaVersion(ctx context.Context, version int) (*types.ExtractionSchema, error) {
	schema, err := s.repo.GetByNameVersion(ctx, nil, DefaultSchemaName, version)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, &ConfigurationError{Resource: "extraction_schema", Err: fmt.Errorf("schema version %d not found", version)}
	}
	return schema, nil
}

func (s *schemaStore) CreateVersion(ctx context.Context, description string, attrs types.AttributeDefs, createdBy *uuid.UUID) (*types.ExtractionSchema, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("schema requires at least one attribute")
	}
	for _, a := range attrs {
		switch a.Type {
		case types.AttrTypeString, types.AttrTypeInteger, types.AttrTypeObject:
		case types.AttrTypeEnum:
			if len(a.Enum) == 0 {
				return nil, fmt.Errorf("attribute %q: enum type requires values", a.Name)
			}
		default:
			return nil, fmt.Errorf("attribute %q: unknown type %q", a.Name, a.Type)
		}
	}

	max, err := s.repo.MaxVersion(ctx, nil, DefaultSchemaName)
	if err != nil {
		return nil, err
	}
	schema := &types.ExtractionSchema{
		Name:        DefaultSchemaName,
		Description: description,
		Version:     max + 1,
		Attributes:  attrs,
		CreatedBy:   createdBy,
	}
	return s.repo.Create(ctx, nil, schema)
}

func (s *schemaStore) Activate(ctx context.Context, schemaID uuid.UUID, adminID *uuid.UUID) (*types.ExtractionSchema, error) {
	activated, previous, err := s.repo.Activate(ctx, schemaID)
	if err != nil {
		return nil, err
	}
	s.active.Store(activated)

	old := map[string]any{}
	if previous != nil {
		old["schema_id"] = previous.ID.String()
		old["version"] = previous.Version
	}
	s.audit.Record(ctx, AuditEvent{
		Action:       "extraction_schema.activate",
		ResourceType: "extraction_schema",
		ResourceID:   &activated.ID,
		AdminUserID:  adminID,
		OldValues:    old,
		NewValues:    map[string]any{"schema_id": activated.ID.String(), "version": activated.Version},
	})

	s.log.Info("Extraction schema activated", "schema_id", activated.ID, "version", activated.Version)
	return activated, nil
}

func (s *schemaStore) List(ctx context.Context) ([]*types.ExtractionSchema, error) {
	return s.repo.ListByName(ctx, nil, DefaultSchemaName)
}
