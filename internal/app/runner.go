package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"buildforge/internal/adapters"
	"buildforge/internal/core"
	"buildforge/internal/ports"
	"buildforge/internal/shared"
	"buildforge/internal/types"
)

// nodeRunner drives one build node end to end: provision the sandbox,
// stage dependency artifacts, run the script, package the output. It
// is shared by all scheduler workers; everything mutable is node-local.
type nodeRunner struct {
	project     types.Project
	store       ports.ContentStorePort
	provisioner ports.ProvisionerPort
	executor    ports.ExecutorPort
	packager    ports.PackagerPort
	workDir     string
	keepFailed  bool
}

func (r *nodeRunner) RunNode(ctx context.Context, result types.ResultDescriptor, depVersions map[string]string) core.NodeOutcome {
	outcome := core.NodeOutcome{}

	sandbox, warnings, err := r.provisioner.Provision(ctx, r.project, result, r.workDir)
	outcome.Warnings = warnings
	if err != nil {
		outcome.Stage = types.FailStageProvision
		outcome.Err = err
		return outcome
	}

	if err := r.stageDependencies(sandbox, result, depVersions); err != nil {
		r.discard(sandbox, true)
		outcome.Stage = types.FailStageProvision
		outcome.Err = err
		return outcome
	}

	execResult, err := r.executor.Execute(ctx, sandbox, ports.ExecSpec{
		ScriptPath: filepath.Join(r.project.Root, result.Script),
		Env:        result.Env,
		Timeout:    time.Duration(result.TimeoutSec) * time.Second,
	})
	outcome.Output = execResult.Output
	if err != nil {
		r.discard(sandbox, r.keepFailed)
		outcome.Stage = types.FailStageBuild
		outcome.Err = err
		return outcome
	}

	meta := types.ResultMeta{
		Name:           result.Name,
		Version:        result.Version,
		DescriptorHash: descriptorHash(result),
		Dependencies:   depVersions,
	}
	handle, packWarnings, err := r.packager.Package(ctx, sandbox, meta)
	outcome.Warnings = append(outcome.Warnings, packWarnings...)
	if err != nil {
		r.discard(sandbox, r.keepFailed)
		outcome.Stage = types.FailStagePackage
		outcome.Err = err
		return outcome
	}

	r.discard(sandbox, false)
	outcome.Meta = handle.Meta
	return outcome
}

// stageDependencies extracts every packaged dependency bundle under
// dep/<name>/ and makes the staged files read-only.
func (r *nodeRunner) stageDependencies(sandbox types.Sandbox, result types.ResultDescriptor, depVersions map[string]string) error {
	for _, dep := range result.Depends {
		handle, err := r.store.GetResult(dep, depVersions[dep])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(handle.BundlePath)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read dependency bundle for " + dep).
				WithCause(err)
		}
		dest := filepath.Join(sandbox.DepDir(), dep)
		if err := adapters.ExtractArchive(data, handle.BundlePath, dest); err != nil {
			return err
		}
		err = filepath.WalkDir(dest, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			return os.Chmod(path, 0o444)
		})
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to protect dependency files for " + dep).
				WithCause(err)
		}
	}
	return nil
}

func (r *nodeRunner) discard(sandbox types.Sandbox, keep bool) {
	if keep {
		log.Info().Str("result", sandbox.Result).Str("path", sandbox.Root).
			Msg("sandbox retained for inspection")
		return
	}
	if err := r.provisioner.Discard(sandbox); err != nil {
		log.Warn().Err(err).Str("result", sandbox.Result).Msg("failed to discard sandbox")
	}
}

// descriptorHash fingerprints the producing descriptor so a result's
// provenance is checkable from its metadata alone.
func descriptorHash(result types.ResultDescriptor) string {
	data, err := yaml.Marshal(result)
	if err != nil {
		return ""
	}
	return shared.SHA256Hex(data)
}
