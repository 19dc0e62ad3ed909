package database

import (
	"context"
	"fmt"
	"log/slog"

	"pulse/internal/config"
	"pulse/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan says which of the two schema mechanisms a process runs at boot.
type schemaPlan struct {
	Mode           string
	RunSQL         bool
	RunAutoMigrate bool
}

// SchemaStatus reports the boot plan alongside the migration ledger.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// planSchema resolves DB_SCHEMA_MODE. The embedded SQL files own the Pulse
// schema in production; AutoMigrate only fills gaps outside it unless
// DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{Mode: cfg.DBSchemaMode}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAutoMigrate = !cfg.IsProduction()
	case SchemaModeAuto:
		if cfg.IsProduction() && !cfg.DBAutoMigrateDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true when APP_ENV=%s", cfg.Env)
		}
		plan.RunAutoMigrate = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// ApplySchema brings users, posts, comments, messages, whys and pulses up to
// date for cfg.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.RunAutoMigrate {
		return nil
	}

	tables := PersistentModels()
	middleware.Logger.InfoContext(ctx, "pulse schema auto-migrating",
		slog.String("schema_mode", plan.Mode),
		slog.String("app_env", cfg.Env),
		slog.Int("tables", len(tables)),
	)
	if err := db.WithContext(ctx).AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the plan and the pending migrations; it writes nothing.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.RunSQL,
		WillRunAutoMigrate: plan.RunAutoMigrate,
	}
	if db.Migrator().HasTable(&MigrationLog{}) {
		status.AppliedVersions, err = NewSchemaLedger(db).Applied(ctx)
		if err != nil {
			return nil, err
		}
	}
	status.PendingMigrations = pendingMigrations(status.AppliedVersions, GetMigrations())
	return status, nil
}
