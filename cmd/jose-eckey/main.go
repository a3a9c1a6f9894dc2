package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/bluesky-social/jose/backend"
	"github.com/bluesky-social/jose/eckey"
	"github.com/bluesky-social/jose/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "jose-eckey",
		Usage:   "inspect, convert, and sign with JOSE EC keys",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Usage:   fmt.Sprintf("EC implementation to use (%v)", backend.Names()),
				Value:   "native",
				EnvVars: []string{"JOSE_ECKEY_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log verbosity level (eg: warn, info, debug)",
				EnvVars: []string{"JOSE_LOG_LEVEL"},
			},
		},
		Before: func(cctx *cli.Context) error {
			if _, err := cliutil.SetupSlog(cliutil.LogOptions{LogLevel: cctx.String("log-level")}); err != nil {
				return err
			}
			return eckey.SetDefaultBackend(cctx.String("backend"))
		},
	}
	app.Commands = []*cli.Command{
		cmdGenerate,
		cmdInspect,
		cmdConvert,
		cmdSign,
		cmdVerify,
	}
	return app.Run(args)
}
