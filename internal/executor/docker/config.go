package docker

import (
	"time"

	"github.com/sakif/skillshare/internal/executor"
)

// Runtime is how one language runs: the image providing the interpreter and
// the command that evaluates a source string. The code is appended as the
// final argument.
type Runtime struct {
	Image   string
	Command []string
}

type Config struct {
	Runtimes map[executor.Language]Runtime

	// Per-container limits.
	MemoryLimit int64
	CPULimit    float64

	Timeout time.Duration

	// PoolSize is the number of warm containers kept per language.
	PoolSize int
}

func DefaultConfig() Config {
	return Config{
		Runtimes: map[executor.Language]Runtime{
			executor.Python:     {Image: "python:3.12-alpine", Command: []string{"python", "-c"}},
			executor.JavaScript: {Image: "node:22-alpine", Command: []string{"node", "-e"}},
		},
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    2,
	}
}
