package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/common"
	"github.com/oshokin/catpoint/internal/service/server"
)

// reservePort returns a free local address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// writeSettings stores a configuration for addr and returns its path.
func writeSettings(t *testing.T, addr string) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")

	require.NoError(t, config.Save(cfgPath, &config.Config{
		ServerAddress: addr,
		Timeout:       5 * time.Second,
		LogLevel:      "error",
		Vision:        config.Vision{Backend: config.VisionBackendFake},
	}))

	return cfgPath
}

// startGRPC starts the server with a temporary config and the given state file.
// It returns once the server answers and stops it on test cleanup.
func startGRPC(t *testing.T, addr string, statePath string) (cfgPath string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfgPath = writeSettings(t, addr)
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath: cfgPath,
			StateFile:  statePath,
			EnvFile:    filepath.Join(t.TempDir(), "missing.env"),
		})
	}()

	client, err := common.Dial(context.Background(), addr, common.WithCallTimeout(time.Second))
	require.NoError(t, err)

	defer func() {
		_ = client.Close()
	}()

	require.Eventually(t, func() bool {
		_, err := client.GetStatus(context.Background())

		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	var stopped bool

	stop = func() {
		if stopped {
			return
		}

		stopped = true

		cancel()
		require.NoError(t, <-done)
	}

	t.Cleanup(stop)

	return cfgPath, stop
}

// dial connects a client to addr and closes it on test cleanup.
func dial(t *testing.T, addr string) *common.Client {
	t.Helper()

	client, err := common.Dial(context.Background(), addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
