package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"buildforge/internal/ports"
	"buildforge/internal/shared"
	"buildforge/internal/types"
)

// sandboxLayout lists the fixed directories every sandbox starts with.
var sandboxLayout = []string{"build", "root", "env", "init", "script", "in", "dep", "out"}

// SandboxAdapter materializes build sandboxes: chroot group archives
// overlaid in declared order into root/, then each source's file
// entries applied in declared order under build/. Any failure discards
// the partial tree.
type SandboxAdapter struct {
	Store ports.ContentStorePort
}

func NewSandboxAdapter(store ports.ContentStorePort) SandboxAdapter {
	return SandboxAdapter{Store: store}
}

func (a SandboxAdapter) Provision(ctx context.Context, project types.Project, result types.ResultDescriptor, workDir string) (types.Sandbox, []string, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.Sandbox{}, nil, provisionErr("failed to create work directory", err)
	}
	root, err := os.MkdirTemp(workDir, result.Name+"-")
	if err != nil {
		return types.Sandbox{}, nil, provisionErr("failed to create sandbox root", err)
	}
	sandbox := types.Sandbox{Root: root, Result: result.Name}

	warnings, err := a.populate(ctx, project, result, sandbox)
	if err != nil {
		// Partial sandbox state is never kept.
		os.RemoveAll(root)
		return types.Sandbox{}, nil, err
	}
	return sandbox, warnings, nil
}

func (a SandboxAdapter) populate(ctx context.Context, project types.Project, result types.ResultDescriptor, sandbox types.Sandbox) ([]string, error) {
	for _, dir := range sandboxLayout {
		if err := os.MkdirAll(filepath.Join(sandbox.Root, dir), 0o755); err != nil {
			return nil, provisionErr("failed to create sandbox layout", err)
		}
	}

	var warnings []string
	for _, groupName := range project.GroupsFor(result) {
		group, ok := project.Group(groupName)
		if !ok {
			return nil, provisionErr("unknown chroot group "+groupName, nil)
		}
		for _, entry := range group.Files {
			server, ok := project.Server(entry.Server)
			if !ok {
				return nil, provisionErr("unknown server "+entry.Server, nil)
			}
			content, err := a.Store.Fetch(ctx, server, entry.Location, entry.SHA1)
			if err != nil {
				return nil, err
			}
			if content.Verification.Level == types.TrustUnverified {
				warnings = append(warnings,
					fmt.Sprintf("chroot group %s: %s used without checksum verification", group.Name, entry.Location))
			}
			if err := ExtractArchive(content.Bytes, entry.Location, sandbox.RootDir()); err != nil {
				return nil, err
			}
		}
		log.Debug().Str("result", result.Name).Str("group", group.Name).Msg("chroot group applied")
	}

	for _, sourceName := range result.Sources {
		source, ok := project.Source(sourceName)
		if !ok {
			return nil, provisionErr("unknown source "+sourceName, nil)
		}
		sourceWarnings, err := a.applySource(ctx, project, source, sandbox)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, sourceWarnings...)
	}
	return warnings, nil
}

func (a SandboxAdapter) applySource(ctx context.Context, project types.Project, source types.SourceDescriptor, sandbox types.Sandbox) ([]string, error) {
	var warnings []string

	keys := make([]string, 0, len(source.Env))
	for key := range source.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		path := filepath.Join(sandbox.EnvDir(), key)
		if err := os.WriteFile(path, []byte(source.Env[key]), 0o644); err != nil {
			return nil, provisionErr("failed to write env file "+key, err)
		}
	}

	// Patches apply against the most recently unpacked directory of
	// this source.
	var lastUnpacked string
	for _, entry := range source.Files {
		serverName := entry.Server
		if serverName == "" {
			serverName = source.Server
		}
		server, ok := project.Server(serverName)
		if !ok {
			return nil, provisionErr("unknown server "+serverName, nil)
		}
		content, err := a.Store.Fetch(ctx, server, entry.Location, entry.SHA1)
		if err != nil {
			return nil, err
		}
		if content.Verification.Level == types.TrustUnverified {
			warnings = append(warnings,
				fmt.Sprintf("source %s: %s used without checksum verification", source.Name, entry.Location))
		}

		switch entry.Action() {
		case types.FileActionUnpack:
			if err := ExtractArchive(content.Bytes, entry.Location, sandbox.BuildDir()); err != nil {
				return nil, err
			}
			unpacked := filepath.Join(sandbox.BuildDir(), entry.Unpack)
			if _, err := os.Stat(unpacked); err != nil {
				return nil, provisionErr(
					fmt.Sprintf("archive %s did not create directory %s", entry.Location, entry.Unpack), err)
			}
			lastUnpacked = unpacked
		case types.FileActionPatch:
			target := lastUnpacked
			if target == "" {
				target = sandbox.BuildDir()
			}
			if err := ApplyPatch(ctx, content.Bytes, target, *entry.Patch); err != nil {
				return nil, err
			}
		case types.FileActionCopy:
			dest, err := shared.SafeJoin(sandbox.BuildDir(), entry.Copy)
			if err != nil {
				return nil, provisionErr("invalid copy destination "+entry.Copy, err)
			}
			if _, err := os.Stat(dest); err == nil {
				warnings = append(warnings,
					fmt.Sprintf("source %s: copy overwrites %s (last declared wins)", source.Name, entry.Copy))
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return nil, provisionErr("failed to create copy destination", err)
			}
			if err := os.WriteFile(dest, content.Bytes, 0o644); err != nil {
				return nil, provisionErr("failed to copy "+entry.Location, err)
			}
		default:
			return nil, provisionErr("file entry has no action: "+entry.Location, nil)
		}
	}
	return warnings, nil
}

func (a SandboxAdapter) Discard(sandbox types.Sandbox) error {
	if sandbox.Root == "" {
		return nil
	}
	if err := os.RemoveAll(sandbox.Root); err != nil {
		return provisionErr("failed to discard sandbox", err)
	}
	return nil
}

func provisionErr(msg string, cause error) error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return builder
}

var _ ports.ProvisionerPort = SandboxAdapter{}
