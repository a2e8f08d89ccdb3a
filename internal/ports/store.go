package ports

import (
	"context"

	"buildforge/internal/types"
)

type ContentStorePort interface {
	// Fetch resolves server+location to bytes, verifying sha1 when it
	// is non-empty. Verified content is cached by checksum; unverified
	// content is cached advisorily by (server, location) and tagged as
	// such. A checksum mismatch never returns the payload.
	Fetch(ctx context.Context, server types.ServerConfig, location, sha1 string) (types.Content, error)

	// PutResult registers a packaged bundle under the meta's name and
	// version. Registered results are immutable.
	PutResult(ctx context.Context, meta types.ResultMeta, bundlePath string) (types.ContentHandle, error)

	GetResult(name, version string) (types.ContentHandle, error)

	// LatestResult returns the handle with the highest version,
	// compared as Debian-style version strings.
	LatestResult(name string) (types.ContentHandle, error)

	Versions(name string) ([]string, error)
}
