//go:build integration
// +build integration

package integration

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/axonlabs/igemm/internal/config"
	"github.com/axonlabs/igemm/internal/device"
	"github.com/axonlabs/igemm/internal/igemm"
	"github.com/axonlabs/igemm/internal/logger"
	"github.com/axonlabs/igemm/internal/refcheck"
)

func TestGemmDispatch_EndToEnd(t *testing.T) {
	var manager *device.Manager

	app := fxtest.New(t,
		fx.Provide(
			func() *config.Config {
				cfg := config.Default()
				cfg.Logger.Verbosity = "debug"
				cfg.Device.Backend = device.BackendAuto
				return cfg
			},
			func(cfg *config.Config) (*zap.Logger, error) {
				return logger.New(cfg.Logger.Verbosity)
			},
			func(log *zap.Logger, cfg *config.Config) (*device.Manager, error) {
				return device.NewManager(log, cfg.Device.Backend)
			},
		),
		fx.Populate(&manager),
	)

	app.RequireStart()
	defer app.RequireStop()
	defer manager.Cleanup()

	dev := manager.Device()
	require.NotNil(t, dev)

	// A deliberately misaligned layout exercises the padding path on
	// whichever backend the manager selected.
	m, n, k := 64, 48, 57
	lda, ldb := 57, 49
	rng := rand.New(rand.NewSource(97))

	hostA := make([]int8, m*lda)
	for i := range hostA {
		hostA[i] = int8(rng.Intn(256) - 128)
	}
	hostB := make([]int8, k*ldb)
	for i := range hostB {
		hostB[i] = int8(rng.Intn(256) - 128)
	}

	dA := upload(t, dev, int8Bytes(hostA))
	dB := upload(t, dev, int8Bytes(hostB))
	dC := upload(t, dev, make([]byte, 4*m*n))

	ec, err := manager.NewExecContext()
	require.NoError(t, err)

	require.NoError(t, igemm.GemmInt8(m, n, k, 1, 0, dA, lda, dB, ldb, dC, n, ec))
	require.NoError(t, ec.Stream.Synchronize())

	got := make([]byte, 4*m*n)
	require.NoError(t, dev.MemcpyDtoH(got, dC))

	want := refcheck.GemmInt8(m, n, k, 1, 0, hostA, lda, hostB, ldb, nil, n)
	assert.Equal(t, want, bytesInt32(got))
}

func upload(t *testing.T, dev device.Device, data []byte) device.Ptr {
	t.Helper()
	p, err := dev.Malloc(len(data))
	require.NoError(t, err)
	require.NoError(t, dev.MemcpyHtoD(p, data))
	return p
}

func int8Bytes(in []int8) []byte {
	out := make([]byte, len(in))
	for i, v := range in {
		out[i] = byte(v)
	}
	return out
}

func bytesInt32(in []byte) []int32 {
	out := make([]int32, len(in)/4)
	for i := range out {
		out[i] = int32(in[4*i]) | int32(in[4*i+1])<<8 | int32(in[4*i+2])<<16 | int32(in[4*i+3])<<24
	}
	return out
}
