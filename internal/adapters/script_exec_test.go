package adapters

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"buildforge/internal/ports"
	"buildforge/internal/types"
	"buildforge/tests/testutil"
)

func newTestSandbox(t *testing.T, result string) types.Sandbox {
	t.Helper()
	sandbox := types.Sandbox{Root: t.TempDir(), Result: result}
	for _, dir := range sandboxLayout {
		require.NoError(t, os.MkdirAll(filepath.Join(sandbox.Root, dir), 0o755))
	}
	return sandbox
}

func stageScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.sh")
	testutil.WriteFile(t, path, []byte(content))
	return path
}

func TestExecuteRunsScriptInSandbox(t *testing.T) {
	sandbox := newTestSandbox(t, "hello")
	script := stageScript(t, "echo building > out/log.txt\n")

	result, err := NewScriptExecAdapter().Execute(t.Context(), sandbox, ports.ExecSpec{ScriptPath: script})
	require.NoError(t, err)
	require.Empty(t, result.Output)

	content, err := os.ReadFile(filepath.Join(sandbox.OutDir(), "log.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("building\n"), content)
}

func TestExecuteEnvironmentIsBuiltFromSpecOnly(t *testing.T) {
	t.Setenv("LEAKY_SECRET", "should not be visible")
	sandbox := newTestSandbox(t, "hello")
	script := stageScript(t, `echo "result=${BUILDFORGE_RESULT}"
echo "secret=${LEAKY_SECRET:-unset}"
echo "prefix=${PREFIX:-unset}"
echo "hidden=${HIDDEN:-unset}"
`)

	result, err := NewScriptExecAdapter().Execute(t.Context(), sandbox, ports.ExecSpec{
		ScriptPath: script,
		Env: map[string]types.EnvBinding{
			"PREFIX": {Value: "/usr/local", Export: true},
			"HIDDEN": {Value: "file only"},
		},
	})
	require.NoError(t, err)
	require.Contains(t, result.Output, "result=hello")
	require.Contains(t, result.Output, "secret=unset")
	require.Contains(t, result.Output, "prefix=/usr/local")
	require.Contains(t, result.Output, "hidden=unset")

	// Non-exported bindings are still available as env files.
	content, err := os.ReadFile(filepath.Join(sandbox.EnvDir(), "HIDDEN"))
	require.NoError(t, err)
	require.Equal(t, []byte("file only"), content)
}

func TestExecuteSourcesInitScriptsFirst(t *testing.T) {
	sandbox := newTestSandbox(t, "hello")
	testutil.WriteFile(t, filepath.Join(sandbox.InitDir(), "10-toolchain.sh"), []byte("TOOLCHAIN=gcc-12\n"))
	script := stageScript(t, "echo \"toolchain=${TOOLCHAIN}\"\n")

	result, err := NewScriptExecAdapter().Execute(t.Context(), sandbox, ports.ExecSpec{ScriptPath: script})
	require.NoError(t, err)
	require.Contains(t, result.Output, "toolchain=gcc-12")
}

func TestExecuteNonZeroExitIsBuildFailure(t *testing.T) {
	sandbox := newTestSandbox(t, "hello")
	script := stageScript(t, "echo something broke\nexit 3\n")

	result, err := NewScriptExecAdapter().Execute(t.Context(), sandbox, ports.ExecSpec{ScriptPath: script})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	require.Contains(t, err.Error(), "build script failed")
	require.Contains(t, result.Output, "something broke")
}

func TestExecuteTimeoutKillsScript(t *testing.T) {
	sandbox := newTestSandbox(t, "hello")
	script := stageScript(t, "sleep 30\n")

	start := time.Now()
	_, err := NewScriptExecAdapter().Execute(t.Context(), sandbox, ports.ExecSpec{
		ScriptPath: script,
		Timeout:    100 * time.Millisecond,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "build script timed out")
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestExecuteMissingScriptIsNotFound(t *testing.T) {
	sandbox := newTestSandbox(t, "hello")
	_, err := NewScriptExecAdapter().Execute(t.Context(), sandbox, ports.ExecSpec{
		ScriptPath: filepath.Join(t.TempDir(), "absent.sh"),
	})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
