package main

import (
	"encoding/json"
	"fmt"

	"pulse/internal/database"
	"pulse/internal/seed"

	"github.com/urfave/cli/v2"
)

func runSeed(cctx *cli.Context) error {
	var (
		sc  *seed.Scenario
		err error
	)
	if path := cctx.String("scenario"); path != "" {
		sc, err = seed.LoadScenario(path)
	} else {
		sc, err = seed.DefaultScenario()
	}
	if err != nil {
		return err
	}

	_, db, err := connect(cctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	report, err := seed.NewSeeder(db, seed.Options{
		Clean:  cctx.Bool("clean"),
		DryRun: cctx.Bool("dry-run"),
	}).Run(cctx.Context, sc)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	enc := json.NewEncoder(cctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
