package main

import (
	"fmt"

	"github.com/axonlabs/igemm/internal/device"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print information about the selected compute device",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit device information as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			manager, err := device.NewManager(rootLogger, cfg.Device.Backend)
			if err != nil {
				return err
			}
			defer manager.Cleanup()

			info := manager.Info()
			if c.Bool("json") {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			rootLogger.Info("device information",
				zap.String("backend", manager.BackendType()),
				zap.String("name", info.Name),
				zap.String("compute_capability", info.ComputeCapability),
				zap.Int64("total_memory_mb", info.TotalMemory/(1024*1024)),
				zap.Int64("available_memory_mb", info.AvailableMemory/(1024*1024)))
			return nil
		},
	}
}
