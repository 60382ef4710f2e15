package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/executor"
	"github.com/sakif/skillshare/internal/metrics"
	"github.com/sakif/skillshare/internal/repository"
)

const maxCodeBytes = 64 * 1024

// CodeRunService runs code posts and ad-hoc snippets in the sandbox. With a
// nil executor every run is Unavailable.
type CodeRunService struct {
	exec   executor.Executor
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewCodeRunService(exec executor.Executor, posts repository.PostRepository, logger *slog.Logger) *CodeRunService {
	return &CodeRunService{exec: exec, posts: posts, logger: logger}
}

// Run executes code in the given language.
func (s *CodeRunService) Run(ctx context.Context, language, code string) (*executor.ExecutionResult, error) {
	if s.exec == nil {
		return nil, apperror.Unavailable("code execution is not enabled on this server")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > maxCodeBytes {
		return nil, apperror.ValidationFailed("code", fmt.Sprintf("code must be %d bytes or fewer", maxCodeBytes))
	}
	lang, err := executor.ParseLanguage(language)
	if err != nil {
		return nil, apperror.ValidationFailed("language", "language must be python or javascript")
	}

	res, err := s.exec.Execute(ctx, executor.ExecutionRequest{Language: lang, Code: code})
	if err != nil {
		metrics.CodeRuns.WithLabelValues(string(lang), "error").Inc()
		if errors.Is(err, executor.ErrUnsupportedLanguage) {
			return nil, apperror.ValidationFailed("language", "language is not available on this server")
		}
		return nil, fmt.Errorf("service/coderun: executing %s: %w", lang, err)
	}

	result := "ok"
	switch {
	case res.ExitCode == executor.TimeoutExitCode:
		result = "timeout"
	case res.ExitCode != 0:
		result = "nonzero"
	}
	metrics.CodeRuns.WithLabelValues(string(lang), result).Inc()

	s.logger.Info("code executed",
		slog.String("language", string(lang)),
		slog.Int("exitCode", res.ExitCode),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// RunPost executes the code attached to a code post.
func (s *CodeRunService) RunPost(ctx context.Context, postID string) (*executor.ExecutionResult, error) {
	p, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/coderun: fetching %s: %w", postID, err)
	}
	if !p.IsCodePost {
		return nil, apperror.ValidationFailed("postId", "post has no code to run")
	}
	return s.Run(ctx, p.CodeLanguage, p.Code)
}
