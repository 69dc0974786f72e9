package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svharshitha92-max/CRUD/internal/config"
)

func TestSetupLogger(t *testing.T) {
	ctx := context.Background()

	assert.False(t, setupLogger("prod").Enabled(ctx, slog.LevelDebug))
	assert.True(t, setupLogger("prod").Enabled(ctx, slog.LevelInfo))
	assert.True(t, setupLogger("staging").Enabled(ctx, slog.LevelDebug))
	assert.True(t, setupLogger("dev").Enabled(ctx, slog.LevelDebug))
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()

	flag := cmd.Flags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "students-api", cmd.Use)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	cfg := &config.Config{
		Env:            "prod",
		ConnectTimeout: time.Second,
		HTTPServer: config.HTTPServer{
			Host:           "127.0.0.1",
			Port:           port,
			AllowedOrigins: []string{"*"},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	url := "http://" + cfg.Addr() + "/api/connection-status"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
