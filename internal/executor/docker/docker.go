// Package docker runs code in throwaway containers: no network, read-only
// root filesystem, memory and CPU caps, unprivileged user. Each language has
// its own pool of pre-started containers; a container serves one run and is
// then removed.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/skillshare/internal/executor"
)

var _ executor.Executor = (*Executor)(nil)

type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pools  map[executor.Language]*Pool
}

// New connects to the Docker daemon from the environment, pulls every
// runtime image and starts the pools.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for lang, rt := range cfg.Runtimes {
		logger.Info("ensuring docker image is available",
			slog.String("language", string(lang)),
			slog.String("image", rt.Image),
		)
		reader, err := cli.ImagePull(ctx, rt.Image, image.PullOptions{})
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("docker: pulling %s: %w", rt.Image, err)
		}
		_, _ = io.Copy(io.Discard, reader)
		reader.Close()
	}

	e := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
		pools:  make(map[executor.Language]*Pool, len(cfg.Runtimes)),
	}
	for lang, rt := range cfg.Runtimes {
		pool := NewPool(cli, rt.Image, cfg, logger.With(slog.String("language", string(lang))))
		pool.Start()
		e.pools[lang] = pool
	}
	return e, nil
}

func (e *Executor) Close() error {
	for _, p := range e.pools {
		p.Stop()
	}
	return e.cli.Close()
}

// Execute runs req.Code in a warm container for req.Language. A run that
// outlives the configured timeout is abandoned and reported with
// executor.TimeoutExitCode. The container is removed afterwards either way.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	rt, ok := e.config.Runtimes[req.Language]
	pool := e.pools[req.Language]
	if !ok || pool == nil {
		return nil, fmt.Errorf("%w: %q", executor.ErrUnsupportedLanguage, req.Language)
	}

	start := time.Now()

	containerID, err := pool.GetContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker: waiting for a %s container: %w", req.Language, err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Error("failed to remove container",
				slog.String("id", containerID),
				slog.String("error", err.Error()),
			)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	cmd := append(append([]string{}, rt.Command...), req.Code)
	execResp, err := e.cli.ContainerExecCreate(runCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		return nil, fmt.Errorf("docker: creating exec: %w", err)
	}

	attach, err := e.cli.ContainerExecAttach(runCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: attaching to exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		close(done)
	}()

	exitCode := 0
	select {
	case <-done:
		inspect, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err != nil {
			return nil, fmt.Errorf("docker: inspecting exec: %w", err)
		}
		exitCode = inspect.ExitCode
	case <-runCtx.Done():
		attach.Close()
		<-done
		exitCode = executor.TimeoutExitCode
		stderr.WriteString("\nExecution timed out.\n")
	}

	return &executor.ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}
