package main

import (
	"fmt"
	"log/slog"

	"pulse/internal/database"
	"pulse/internal/featureflags"
	"pulse/internal/middleware"
	"pulse/internal/repository"
	"pulse/internal/service"

	"github.com/urfave/cli/v2"
)

func verifyGraph(cctx *cli.Context) error {
	cfg, db, err := connect(cctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	batch := cctx.Int("batch")
	if batch <= 0 {
		batch = 200
	}

	users := repository.NewUserRepository(db)
	graph := service.NewGraphService(users, featureflags.NewManager(cfg.FeatureFlags))

	var afterID int64
	var checked, repaired int
	for {
		page, err := users.List(cctx.Context, afterID, batch)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for _, u := range page {
			warnings, err := graph.VerifyUser(cctx.Context, u.ID)
			if err != nil {
				return fmt.Errorf("verify user %d: %w", u.ID, err)
			}
			checked++
			repaired += len(warnings)
			for _, w := range warnings {
				fmt.Fprintln(cctx.App.Writer, w.Message)
			}
		}
		afterID = page[len(page)-1].ID
	}

	middleware.Logger.InfoContext(cctx.Context, "follow graph verified",
		slog.Int("users", checked),
		slog.Int("repairs", repaired),
	)
	fmt.Fprintf(cctx.App.Writer, "checked %d users, repaired %d edges\n", checked, repaired)
	return nil
}
