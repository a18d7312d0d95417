package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/axonlabs/igemm/internal/device"
	"github.com/axonlabs/igemm/internal/igemm"
	"github.com/axonlabs/igemm/internal/refcheck"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func multiplyCommand() *cli.Command {
	return &cli.Command{
		Name:  "multiply",
		Usage: "Run an int8 GEMM with the given shape and verify the result on the host",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "m", Value: 256, Usage: "Rows of A and C"},
			&cli.IntFlag{Name: "n", Value: 256, Usage: "Columns of B and C"},
			&cli.IntFlag{Name: "k", Value: 256, Usage: "Contraction dimension"},
			&cli.IntFlag{Name: "lda", Usage: "Leading dimension of A (defaults to k)"},
			&cli.IntFlag{Name: "ldb", Usage: "Leading dimension of B (defaults to n)"},
			&cli.IntFlag{Name: "alpha", Value: 1, Usage: "Integer scale applied to A@B"},
			&cli.IntFlag{Name: "beta", Value: 0, Usage: "Integer scale applied to the prior C"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Seed for the operand generator"},
		},
		Action: runMultiply,
	}
}

func runMultiply(c *cli.Context) error {
	m, n, k := c.Int("m"), c.Int("n"), c.Int("k")
	lda, ldb := c.Int("lda"), c.Int("ldb")
	if lda == 0 {
		lda = k
	}
	if ldb == 0 {
		ldb = n
	}
	if lda < k || ldb < n {
		return fmt.Errorf("leading dimensions must cover the logical extent: lda >= %d, ldb >= %d", k, n)
	}
	alpha, beta := int32(c.Int("alpha")), int32(c.Int("beta"))
	log := rootLogger.Named("multiply")

	manager, err := device.NewManager(rootLogger, cfg.Device.Backend)
	if err != nil {
		return err
	}
	defer manager.Cleanup()
	dev := manager.Device()

	rng := rand.New(rand.NewSource(c.Int64("seed")))
	hostA := randomInt8(rng, m*lda)
	hostB := randomInt8(rng, k*ldb)
	initC := make([]int32, m*n)
	if beta != 0 {
		for i := range initC {
			initC[i] = int32(rng.Intn(256) - 128)
		}
	}
	hostC := make([]int32, m*n)

	dA, err := uploadInt8(dev, hostA)
	if err != nil {
		return err
	}
	dB, err := uploadInt8(dev, hostB)
	if err != nil {
		return err
	}
	dC, err := uploadInt32(dev, initC)
	if err != nil {
		return err
	}

	ec, err := manager.NewExecContext()
	if err != nil {
		return err
	}

	log.Debug("dispatching integer GEMM",
		zap.Int("m", m), zap.Int("n", n), zap.Int("k", k),
		zap.Int("lda", lda), zap.Int("ldb", ldb),
		zap.Bool("lda_aligned", lda%32 == 0), zap.Bool("ldb_aligned", ldb%32 == 0))

	start := time.Now()
	if err := igemm.GemmInt8(m, n, k, alpha, beta, dA, lda, dB, ldb, dC, n, ec); err != nil {
		return fmt.Errorf("integer GEMM dispatch failed: %w", err)
	}
	if err := ec.Stream.Synchronize(); err != nil {
		return fmt.Errorf("device execution failed: %w", err)
	}
	elapsed := time.Since(start)

	if err := downloadInt32(dev, hostC, dC); err != nil {
		return err
	}

	expected := refcheck.GemmInt8(m, n, k, alpha, beta, hostA, lda, hostB, ldb, initC, n)
	mismatches := 0
	for i := range expected {
		if expected[i] != hostC[i] {
			mismatches++
		}
	}
	if mismatches > 0 {
		log.Error("device result diverges from host reference", zap.Int("mismatches", mismatches))
		return fmt.Errorf("verification failed: %d of %d elements differ", mismatches, len(expected))
	}

	info := manager.Info()
	log.Info("integer GEMM verified against host reference",
		zap.String("backend", manager.BackendType()),
		zap.String("device", info.Name),
		zap.Duration("elapsed", elapsed),
		zap.Int64("ops", 2*int64(m)*int64(n)*int64(k)))
	return nil
}

func randomInt8(rng *rand.Rand, n int) []int8 {
	out := make([]int8, n)
	for i := range out {
		out[i] = int8(rng.Intn(256) - 128)
	}
	return out
}

func uploadInt8(dev device.Device, host []int8) (device.Ptr, error) {
	buf := make([]byte, len(host))
	for i, v := range host {
		buf[i] = byte(v)
	}
	p, err := dev.Malloc(len(buf))
	if err != nil {
		return device.Ptr{}, err
	}
	if err := dev.MemcpyHtoD(p, buf); err != nil {
		return device.Ptr{}, err
	}
	return p, nil
}

func uploadInt32(dev device.Device, host []int32) (device.Ptr, error) {
	buf := make([]byte, 4*len(host))
	for i, v := range host {
		buf[4*i] = byte(v)
		buf[4*i+1] = byte(v >> 8)
		buf[4*i+2] = byte(v >> 16)
		buf[4*i+3] = byte(v >> 24)
	}
	p, err := dev.Malloc(len(buf))
	if err != nil {
		return device.Ptr{}, err
	}
	if err := dev.MemcpyHtoD(p, buf); err != nil {
		return device.Ptr{}, err
	}
	return p, nil
}

func downloadInt32(dev device.Device, host []int32, p device.Ptr) error {
	buf := make([]byte, 4*len(host))
	if err := dev.MemcpyDtoH(buf, p); err != nil {
		return err
	}
	for i := range host {
		host[i] = int32(buf[4*i]) | int32(buf[4*i+1])<<8 | int32(buf[4*i+2])<<16 | int32(buf[4*i+3])<<24
	}
	return nil
}
