package docker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/skillshare/internal/executor"
	"github.com/sakif/skillshare/internal/executor/docker"
)

// Needs a reachable Docker daemon; skipped in CI and with -short.
func newTestExecutor(t *testing.T, cfg docker.Config) *docker.Executor {
	t.Helper()
	if testing.Short() || os.Getenv("CI") != "" {
		t.Skip("skipping docker test")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec, err := docker.New(cfg, logger)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestDockerExecutor(t *testing.T) {
	cfg := docker.DefaultConfig()
	cfg.PoolSize = 1
	exec := newTestExecutor(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t.Run("python", func(t *testing.T) {
		res, err := exec.Execute(ctx, executor.ExecutionRequest{
			Language: executor.Python,
			Code:     `print("hello from python")`,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Contains(t, res.Stdout, "hello from python")
		assert.Greater(t, res.Duration, time.Duration(0))
	})

	t.Run("javascript", func(t *testing.T) {
		res, err := exec.Execute(ctx, executor.ExecutionRequest{
			Language: executor.JavaScript,
			Code:     `console.log([1, 2, 3].map(x => x * 2).join(","))`,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Contains(t, res.Stdout, "2,4,6")
	})

	t.Run("python syntax error", func(t *testing.T) {
		res, err := exec.Execute(ctx, executor.ExecutionRequest{
			Language: executor.Python,
			Code:     `print("missing parenthesis"`,
		})
		require.NoError(t, err)
		assert.NotEqual(t, 0, res.ExitCode)
		assert.Contains(t, res.Stderr, "SyntaxError")
	})

	t.Run("unsupported language", func(t *testing.T) {
		_, err := exec.Execute(ctx, executor.ExecutionRequest{Language: "ruby", Code: "puts 1"})
		assert.True(t, errors.Is(err, executor.ErrUnsupportedLanguage))
	})
}

func TestDockerExecutor_Timeout(t *testing.T) {
	cfg := docker.DefaultConfig()
	cfg.PoolSize = 1
	cfg.Timeout = 2 * time.Second
	cfg.Runtimes = map[executor.Language]docker.Runtime{
		executor.Python: cfg.Runtimes[executor.Python],
	}
	exec := newTestExecutor(t, cfg)

	res, err := exec.Execute(context.Background(), executor.ExecutionRequest{
		Language: executor.Python,
		Code:     `while True: pass`,
	})
	require.NoError(t, err)
	assert.Equal(t, executor.TimeoutExitCode, res.ExitCode)
	assert.Contains(t, res.Stderr, "timed out")
}
