package adapters

import (
	"context"
	"os"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"buildforge/internal/ports"
	"buildforge/internal/shared"
	"buildforge/internal/types"
)

// ResultPackageAdapter bundles a sandbox's out area into a
// deterministic tar.gz and registers it with the content store.
type ResultPackageAdapter struct {
	Store ports.ContentStorePort
	Clock func() time.Time
}

func NewResultPackageAdapter(store ports.ContentStorePort) ResultPackageAdapter {
	return ResultPackageAdapter{Store: store, Clock: time.Now}
}

func (a ResultPackageAdapter) Package(ctx context.Context, sandbox types.Sandbox, meta types.ResultMeta) (types.ContentHandle, []string, error) {
	var warnings []string
	entries, err := os.ReadDir(sandbox.OutDir())
	if err != nil {
		return types.ContentHandle{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read output directory").
			WithCause(err)
	}
	if len(entries) == 0 {
		// Usually a misconfigured build script, but not an error.
		warnings = append(warnings, "output directory is empty")
	}

	bundle, err := CreateArchive(sandbox.OutDir())
	if err != nil {
		return types.ContentHandle{}, nil, err
	}
	meta.ContentSHA256 = shared.SHA256Hex(bundle)
	meta.CreatedAt = a.Clock().UTC()

	tmp, err := os.CreateTemp("", "buildforge-bundle-*.tar.gz")
	if err != nil {
		return types.ContentHandle{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage result bundle").
			WithCause(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(bundle); err != nil {
		tmp.Close()
		return types.ContentHandle{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write result bundle").
			WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return types.ContentHandle{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close result bundle").
			WithCause(err)
	}

	handle, err := a.Store.PutResult(ctx, meta, tmpPath)
	if err != nil {
		return types.ContentHandle{}, nil, err
	}
	log.Debug().Str("result", meta.Name).Str("version", meta.Version).
		Int("files", len(entries)).Msg("output packaged")
	return handle, warnings, nil
}

var _ ports.PackagerPort = ResultPackageAdapter{}
