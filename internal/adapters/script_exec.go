package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"buildforge/internal/ports"
	"buildforge/internal/types"
)

// Variables every build script can rely on.
const (
	envTmpDir = "BUILDFORGE_TMPDIR"
	envResult = "BUILDFORGE_RESULT"
)

const driverName = "driver.sh"

// ScriptExecAdapter runs a result's build script inside its sandbox.
// The process environment is assembled exclusively from the exec spec,
// never inherited, so concurrent builds cannot observe each other's
// variables.
type ScriptExecAdapter struct {
	// Shell interprets the driver; defaults to /bin/sh.
	Shell string
}

func NewScriptExecAdapter() ScriptExecAdapter {
	return ScriptExecAdapter{Shell: "/bin/sh"}
}

func (a ScriptExecAdapter) Execute(ctx context.Context, sandbox types.Sandbox, spec ports.ExecSpec) (ports.ExecResult, error) {
	scriptData, err := os.ReadFile(spec.ScriptPath)
	if err != nil {
		return ports.ExecResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("build script not found: " + spec.ScriptPath).
			WithCause(err)
	}
	scriptName := filepath.Base(spec.ScriptPath)
	if err := os.WriteFile(filepath.Join(sandbox.ScriptDir(), scriptName), scriptData, 0o755); err != nil {
		return ports.ExecResult{}, execErr("failed to stage build script", err)
	}

	if err := a.writeEnvFiles(sandbox, spec.Env); err != nil {
		return ports.ExecResult{}, err
	}
	driver := a.driverScript(scriptName)
	driverPath := filepath.Join(sandbox.ScriptDir(), driverName)
	if err := os.WriteFile(driverPath, []byte(driver), 0o755); err != nil {
		return ports.ExecResult{}, execErr("failed to stage build driver", err)
	}

	execCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, a.shell(), driverPath)
	cmd.Dir = sandbox.Root
	cmd.Env = a.environment(sandbox, spec.Env)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	log.Debug().Str("result", sandbox.Result).Str("script", scriptName).Msg("build script starting")
	err = cmd.Run()
	result := ports.ExecResult{Output: output.String()}
	if err == nil {
		return result, nil
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("build script timed out").
			WithCause(err)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("build script failed").
		WithCause(err)
}

func (a ScriptExecAdapter) shell() string {
	if a.Shell != "" {
		return a.Shell
	}
	return "/bin/sh"
}

// writeEnvFiles materializes every binding as a file under env/ for the
// script to read; exportable ones additionally reach the process
// environment.
func (a ScriptExecAdapter) writeEnvFiles(sandbox types.Sandbox, env map[string]types.EnvBinding) error {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		path := filepath.Join(sandbox.EnvDir(), key)
		if err := os.WriteFile(path, []byte(env[key].Value), 0o644); err != nil {
			return execErr("failed to write env file "+key, err)
		}
	}
	return nil
}

func (a ScriptExecAdapter) environment(sandbox types.Sandbox, env map[string]types.EnvBinding) []string {
	vars := []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + sandbox.Root,
		envTmpDir + "=" + sandbox.Root,
		envResult + "=" + sandbox.Result,
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if env[key].Export {
			vars = append(vars, key+"="+env[key].Value)
		}
	}
	return vars
}

// driverScript sources every init script, then the build script itself,
// from the sandbox root.
func (a ScriptExecAdapter) driverScript(scriptName string) string {
	return fmt.Sprintf(`#!/bin/sh
set -e
cd "%s"
for f in init/*; do
	if [ -f "$f" ]; then
		. "$f"
	fi
done
. "script/%s"
`, "${"+envTmpDir+"}", scriptName)
}

func execErr(msg string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(cause)
}

var _ ports.ExecutorPort = ScriptExecAdapter{}
