package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"buildforge/tests/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "./cmd/buildforge"}, args...)...)
	cmd.Dir = testutil.RepoRoot(t)
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestValidateCommandE2E(t *testing.T) {
	out, err := runCLI(t, "validate", "--project", "fixtures/sample-project")
	require.NoError(t, err, out)
	require.Contains(t, out, "validated: sample-project (1 sources, 1 chroot groups, 1 results)")
}

func TestPlanCommandE2E(t *testing.T) {
	out, err := runCLI(t, "plan", "--project", "fixtures/sample-project")
	require.NoError(t, err, out)
	require.Contains(t, out, "plan for sample-project:")
	require.Contains(t, out, "hello 1.0")
	require.Contains(t, out, "untrusted: hello: group:base: archive chroot/base.tar.gz has no checksum")
}

func TestRunCommandE2E(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "project.yaml"), []byte(
		"name: cli-e2e\nservers:\n  - name: local\n    url: file://"+t.TempDir()+"\n"))
	testutil.WriteFile(t, filepath.Join(root, "results", "greet.yaml"), []byte(
		"version: \"1.0\"\nscript: scripts/greet.sh\n"))
	testutil.WriteFile(t, filepath.Join(root, "scripts", "greet.sh"), []byte(
		"echo greetings > out/greeting.txt\n"))

	out, err := runCLI(t, "run", "--project", root)
	require.NoError(t, err, out)
	require.Contains(t, out, "run status: all-succeeded")
	require.FileExists(t, filepath.Join(root, ".buildforge", "store", "results", "greet", "1.0", "bundle.tar.gz"))
	require.FileExists(t, filepath.Join(root, ".buildforge", "store", "results", "greet", "1.0", "meta.yaml"))
}
