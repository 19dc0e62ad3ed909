package main

import (
	"fmt"
	"time"

	"pulse/internal/idgen"
	"pulse/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v2"
)

func issueToken(cctx *cli.Context) error {
	if cctx.NArg() < 1 {
		return cli.Exit("usage: pulsectl token <user-id>", 2)
	}
	userID, err := idgen.Parse(cctx.Args().First())
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, userID, jwt.MapClaims{
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, token)
	return nil
}
