package main

import (
	"net/http"

	"github.com/axonlabs/igemm/internal/device"
	"github.com/axonlabs/igemm/internal/metrics"
	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Expose dispatcher and device metrics over HTTP",
		Action: func(c *cli.Context) error {
			banner := figure.NewFigure("igemm", "", true)
			banner.Print()

			manager, err := device.NewManager(rootLogger, cfg.Device.Backend)
			if err != nil {
				return err
			}
			defer manager.Cleanup()

			info := manager.Info()
			metrics.DeviceMemoryTotalBytes.Set(float64(info.TotalMemory))
			metrics.DeviceMemoryAvailableBytes.Set(float64(info.AvailableMemory))

			http.Handle("/metrics", promhttp.Handler())
			rootLogger.Info("serving metrics",
				zap.String("listen", cfg.Metrics.Listen),
				zap.String("backend", manager.BackendType()))
			return http.ListenAndServe(cfg.Metrics.Listen, nil)
		},
	}
}
