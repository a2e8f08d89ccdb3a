package ports

import (
	"context"

	"buildforge/internal/types"
)

type PackagerPort interface {
	// Package collects the sandbox's out area into a deterministic
	// bundle, fills in the content checksum and creation time on meta,
	// and registers the bundle with the content store. An empty out
	// area is not an error but is reported as a warning.
	Package(ctx context.Context, sandbox types.Sandbox, meta types.ResultMeta) (types.ContentHandle, []string, error)
}
