package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/luxfi/srup/pkg/config"
	"github.com/luxfi/srup/pkg/logger"
	"github.com/luxfi/srup/pkg/srup"
)

const Version = "0.1.0"

var cfg config.Config

func main() {
	app := &cli.Command{
		Name:    "srupctl",
		Usage:   "Create, sign, verify and exchange SRUP messages",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			config.InitViperConfig()
			loaded, err := config.Load()
			if err != nil {
				return ctx, err
			}
			cfg = loaded
			logger.Init(cfg.Environment, c.Bool("debug") || cfg.Debug)
			return ctx, nil
		},
		Commands: []*cli.Command{
			keygenCommand(),
			signCommand(),
			verifyCommand(),
			inspectCommand(),
			publishCommand(),
			listenCommand(),
			{
				Name:  "version",
				Usage: "Display detailed version information",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Printf("srupctl version %s (protocol 0x%02x)\n", Version, srup.Version)
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
