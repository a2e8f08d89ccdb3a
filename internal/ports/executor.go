package ports

import (
	"context"
	"time"

	"buildforge/internal/types"
)

// ExecSpec fixes everything the build script runs with. Process
// environment is built from this struct alone so concurrent builds
// cannot leak variables into each other.
type ExecSpec struct {
	ScriptPath string
	Env        map[string]types.EnvBinding
	Timeout    time.Duration
}

type ExecResult struct {
	Output string
}

type ExecutorPort interface {
	// Execute runs the build script inside the sandbox. A nonzero exit
	// or timeout is an error carrying the captured combined output.
	Execute(ctx context.Context, sandbox types.Sandbox, spec ExecSpec) (ExecResult, error)
}
