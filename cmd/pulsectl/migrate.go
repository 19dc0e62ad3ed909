package main

import (
	"fmt"
	"strconv"

	"pulse/internal/database"

	"github.com/urfave/cli/v2"
)

func migrateUp(cctx *cli.Context) error {
	_, db, err := connect(cctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := database.RunMigrations(cctx.Context, db); err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	fmt.Fprintln(cctx.App.Writer, "sql migrations applied")
	return nil
}

func migrateDown(cctx *cli.Context) error {
	if cctx.NArg() < 1 {
		return cli.Exit("usage: pulsectl migrate down <version>", 2)
	}
	version, err := strconv.Atoi(cctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", cctx.Args().First(), err)
	}

	_, db, err := connect(cctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := database.RollbackMigration(cctx.Context, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	fmt.Fprintf(cctx.App.Writer, "rolled back migration %d\n", version)
	return nil
}

func migrateStatus(cctx *cli.Context) error {
	cfg, db, err := connect(cctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	status, err := database.GetSchemaStatus(cctx.Context, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	w := cctx.App.Writer
	fmt.Fprintf(w, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		fmt.Fprintf(w, "pending: %s\n", m.String())
	}
	return nil
}
