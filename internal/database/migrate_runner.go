package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"pulse/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one row of the ledger of SQL migrations run against the
// Pulse database.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// SchemaLedger runs embedded migrations and keeps migration_logs in step
// with what actually ran.
type SchemaLedger interface {
	Applied(ctx context.Context) ([]int, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

type schemaLedger struct {
	db *gorm.DB
}

// NewSchemaLedger returns a SchemaLedger backed by db.
func NewSchemaLedger(db *gorm.DB) SchemaLedger {
	return &schemaLedger{db: db}
}

func (l *schemaLedger) Applied(ctx context.Context) ([]int, error) {
	var versions []int
	err := l.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return versions, nil
}

// Apply runs the up script and records it; either both land or neither does.
func (l *schemaLedger) Apply(ctx context.Context, m Migration) error {
	start := time.Now()
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("migration %s up: %w", m.String(), err)
		}
		return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "pulse schema migrated",
		slog.Int("migration_version", m.Version),
		slog.String("migration_name", m.Name),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// Revert runs the down script and drops the ledger row in one transaction.
func (l *schemaLedger) Revert(ctx context.Context, m Migration) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("migration %s down: %w", m.String(), err)
		}
		return tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "pulse schema reverted",
		slog.Int("migration_version", m.Version),
		slog.String("migration_name", m.Name),
	)
	return nil
}

// RunMigrations applies every embedded migration missing from the ledger,
// oldest first.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}

	ledger := NewSchemaLedger(db)
	applied, err := ledger.Applied(ctx)
	if err != nil {
		return err
	}
	if err := checkLedger(applied, migrations); err != nil {
		return err
	}

	pending := pendingMigrations(applied, migrations)
	for _, m := range pending {
		if err := ledger.Apply(ctx, m); err != nil {
			return err
		}
	}
	middleware.Logger.InfoContext(ctx, "pulse schema up to date",
		slog.Int("migrations_applied", len(pending)),
		slog.Int("migrations_total", len(migrations)),
	)
	return nil
}

func pendingMigrations(applied []int, registered []Migration) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}

// checkLedger fails when the database ran migrations this build does not ship.
func checkLedger(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version }) {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("migration_logs lists versions this build does not ship: %s; recreate the pulse database",
		strings.Join(unknown, ", "))
}

// RollbackMigration reverts one applied migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	ledger := NewSchemaLedger(db)
	applied, err := ledger.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s has not been applied", m.String())
	}
	return ledger.Revert(ctx, *m)
}
