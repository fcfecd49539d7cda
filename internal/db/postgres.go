package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openhealth/shared-backend/internal/config"
	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(cfg config.DatabaseConfig, log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode)

	serviceLog.Info("Connecting to Postgres...", "host", cfg.Host, "database", cfg.Name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.AdminUser{},
		&types.Conversation{},
		&types.Message{},
		&types.Venture{},
		&types.Meeting{},
		&types.ExtractionSchema{},
		&types.ScoringWeights{},
		&types.AuditLog{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct {
		name string
		stmt string
	}{
		{"fk_user_token_user_id", `
			ALTER TABLE "user_token"
			ADD CONSTRAINT "fk_user_token_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"fk_conversation_user_id", `
			ALTER TABLE "conversation"
			ADD CONSTRAINT "fk_conversation_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"fk_message_conversation_id", `
			ALTER TABLE "message"
			ADD CONSTRAINT "fk_message_conversation_id"
			FOREIGN KEY ("conversation_id") REFERENCES "conversation"("id")
			ON DELETE CASCADE`},
		{"fk_venture_user_id", `
			ALTER TABLE "venture"
			ADD CONSTRAINT "fk_venture_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"fk_venture_conversation_id", `
			ALTER TABLE "venture"
			ADD CONSTRAINT "fk_venture_conversation_id"
			FOREIGN KEY ("conversation_id") REFERENCES "conversation"("id")
			ON DELETE SET NULL`},
		{"fk_meeting_user_id", `
			ALTER TABLE "meeting"
			ADD CONSTRAINT "fk_meeting_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"fk_meeting_venture_id", `
			ALTER TABLE "meeting"
			ADD CONSTRAINT "fk_meeting_venture_id"
			FOREIGN KEY ("venture_id") REFERENCES "venture"("id")
			ON DELETE SET NULL`},
	}
	for _, fk := range fks {
		stmt := fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					%s;
				END IF;
			END $$;`, fk.name, fk.stmt)
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

// Ping verifies the underlying connection, used by the health check.
func (s *PostgresService) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
