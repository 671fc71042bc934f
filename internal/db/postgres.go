package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/types"
	"github.com/ciangeneway-dot/Khumalo/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService connects to the relational backend. DB_DRIVER=sqlite
// switches to a local sqlite file for development; everything else is
// Postgres.
func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	if driver == "sqlite" {
		path := utils.GetEnv("SQLITE_PATH", "khumalo.db", log)
		serviceLog.Info("Connecting to sqlite...", "path", path)
		gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
			TranslateError: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}
		return &PostgresService{db: gdb, log: serviceLog}, nil
	}

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "khumalo", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.Patient{},
		&types.Document{},
		&types.AISummary{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	s.log.Info("Configuring foreign key relationships...")
	if err := s.db.Exec(`
		ALTER TABLE "document"
		DROP CONSTRAINT IF EXISTS "fk_document_patient_id";
	`).Error; err != nil {
		return fmt.Errorf("failed to reset fk_document_patient_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "document"
		ADD CONSTRAINT "fk_document_patient_id"
		FOREIGN KEY ("patient_id")
		REFERENCES "patient"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_document_patient_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
