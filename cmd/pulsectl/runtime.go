package main

import (
	"fmt"

	"pulse/internal/config"
	"pulse/internal/database"
	"pulse/internal/idgen"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := idgen.Init(cfg.NodeID); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect opens the database. Schema changes are left to the migrate commands.
func connect(cctx *cli.Context, applySchema bool) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.ConnectWithOptions(cctx.Context, cfg, database.ConnectOptions{ApplySchema: applySchema})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}
