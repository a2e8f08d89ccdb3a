package ports

import (
	"context"

	"buildforge/internal/types"
)

type ProvisionerPort interface {
	// Provision materializes a sandbox for the result under workDir:
	// chroot groups extracted in declared order, then every source file
	// entry applied in declared order. The returned warnings carry
	// trust diagnostics (unverified content). On error no sandbox is
	// left behind.
	Provision(ctx context.Context, project types.Project, result types.ResultDescriptor, workDir string) (types.Sandbox, []string, error)

	Discard(sandbox types.Sandbox) error
}
