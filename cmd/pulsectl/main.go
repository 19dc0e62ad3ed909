// Command pulsectl runs schema, seed and maintenance tasks against a Pulse database.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pulsectl"
	app.Usage = "Pulse maintenance commands"
	app.Action = cli.ShowAppHelp
	app.Commands = []*cli.Command{
		{
			Name:     "migrate",
			Usage:    "Manage the SQL schema",
			Category: "Database",
			Subcommands: []*cli.Command{
				{Name: "up", Usage: "Apply pending migrations", Action: migrateUp},
				{
					Name:      "down",
					Usage:     "Roll back one applied migration",
					ArgsUsage: "<version>",
					Action:    migrateDown,
				},
				{Name: "status", Usage: "Show applied and pending migrations", Action: migrateStatus},
			},
		},
		{
			Name:     "seed",
			Usage:    "Load a scenario of users, posts, comments and messages",
			Category: "Database",
			Action:   runSeed,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "scenario", Usage: "path to a scenario YAML file (default: embedded demo)"},
				&cli.BoolFlag{Name: "clean", Usage: "delete existing rows first"},
				&cli.BoolFlag{Name: "dry-run", Usage: "build the scenario without writing it"},
			},
		},
		{
			Name:     "graph",
			Usage:    "Follow graph maintenance",
			Category: "Maintenance",
			Subcommands: []*cli.Command{
				{
					Name:        "verify",
					Usage:       "Audit every user's follow lists and repair asymmetries",
					Description: `Walks all users in ID order. Each asymmetry found is repaired from the follower's side and reported.`,
					Action:      verifyGraph,
					Flags: []cli.Flag{
						&cli.IntFlag{Name: "batch", Value: 200, Usage: "users per page"},
					},
				},
			},
		},
		{
			Name:      "token",
			Usage:     "Issue a bearer token for a user ID",
			Category:  "Maintenance",
			ArgsUsage: "<user-id>",
			Action:    issueToken,
		},
	}
	return app
}
