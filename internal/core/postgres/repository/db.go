package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/viridial-group/realestate-sub003/internal/domain"
)

// Options locate the Postgres database.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (o Options) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		o.Host, o.User, o.Password, o.Name, o.Port, o.SSLMode)
}

// Open connects with error translation enabled so unique violations
// surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates the tables and the index that backs default uniqueness.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.WorkflowDefinition{}, &domain.WorkflowInstance{}, &domain.Task{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// Older schemas counted targeted rows toward the default slot.
	if err := db.Exec(`DROP INDEX IF EXISTS idx_definitions_one_default`).Error; err != nil {
		return fmt.Errorf("drop default index: %w", err)
	}
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_definitions_one_org_default
		ON workflow_definitions (organization_id, action)
		WHERE is_default AND active AND target_type = '' AND target_id = ''`).Error
	if err != nil {
		return fmt.Errorf("create default index: %w", err)
	}
	return nil
}
