// Package executor defines the sandbox contract used to run code posts.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
)

var ErrUnsupportedLanguage = errors.New("executor: unsupported language")

// ParseLanguage maps the language names clients send (including the common
// short forms) onto a Language.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "python3", "py":
		return Python, nil
	case "javascript", "js", "node":
		return JavaScript, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

type ExecutionRequest struct {
	Language Language `json:"language"`
	Code     string   `json:"code"`
}

type ExecutionResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// TimeoutExitCode is reported when a run is killed for exceeding its time
// limit, matching coreutils timeout(1).
const TimeoutExitCode = 124

type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
