package main

import (
	"fmt"
	"os"

	"github.com/axonlabs/igemm/internal/config"
	"github.com/axonlabs/igemm/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	cfg        *config.Config
	rootLogger *zap.Logger
)

func main() {
	app := &cli.App{
		Name:  "igemm",
		Usage: "Aligned integer GEMM dispatcher for quantized workloads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Override the compute backend (auto|cuda|sim)",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			if path := c.String("config"); path != "" {
				cfg, err = config.LoadConfig(path)
				if err != nil {
					return err
				}
			} else {
				cfg = config.Default()
			}
			if backend := c.String("backend"); backend != "" {
				cfg.Device.Backend = backend
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			rootLogger = zapLogger.Named("igemm")
			return nil
		},
		Commands: []*cli.Command{
			infoCommand(),
			multiplyCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if rootLogger != nil {
			rootLogger.Fatal("failed to run app", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}
