package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{"validate", "plan", "run", "inspect"}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := newRunCommand()
	flags := []string{
		"project", "store", "work-dir", "result",
		"workers", "fail-fast", "keep-failed",
	}
	for _, name := range flags {
		flag := cmd.Flags().Lookup(name)
		assert.NotNil(t, flag, "missing flag: %s", name)
	}
}

func TestPlanCommandFlags(t *testing.T) {
	cmd := newPlanCommand()
	assert.NotNil(t, cmd.Flags().Lookup("project"))
	assert.NotNil(t, cmd.Flags().Lookup("result"))
}

func TestInspectCommandRequiresResultArg(t *testing.T) {
	cmd := newInspectCommand()
	cmd.SetContext(context.Background())
	cmd.SetArgs([]string{})
	require.Error(t, cmd.Execute())
}

func TestValidateCommandFlags(t *testing.T) {
	cmd := newValidateCommand()
	assert.NotNil(t, cmd.Flags().Lookup("project"))
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	got := resolveString(nil, "explicit", "cli_test_key", "test-flag")
	assert.Equal(t, "explicit", got)

	got = resolveString(nil, "", "cli_test_key", "test-flag")
	assert.Equal(t, "", got)
}

func TestResolveStrings(t *testing.T) {
	got := resolveStrings(nil, []string{"a", "b"}, "cli_test_key", "test-flag")
	assert.Equal(t, []string{"a", "b"}, got)

	got = resolveStrings(nil, nil, "cli_test_key", "test-flag")
	assert.Nil(t, got)
}

func TestResolveBool(t *testing.T) {
	assert.True(t, resolveBool(nil, true, "cli_test_key", "test-flag"))
	assert.False(t, resolveBool(nil, false, "cli_test_key", "test-flag"))
}

func TestResolveInt(t *testing.T) {
	assert.Equal(t, 42, resolveInt(nil, 42, "cli_test_key", "test-flag"))
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")
}

func TestFlagChangedAfterSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("malformed source"),
			expected: 2,
		},
		{
			name: "already exists",
			err: errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg("result hello 1.0 already registered with different content"),
			expected: 2,
		},
		{
			name: "dependency cycle",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("dependency cycle: a -> b -> a"),
			expected: 3,
		},
		{
			name: "checksum mismatch",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("checksum mismatch for pool/hello.tar.gz: expected aa actual bb"),
			expected: 4,
		},
		{
			name: "generic failed precondition",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("patch did not apply cleanly"),
			expected: 4,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("unknown result: ghost"),
			expected: 5,
		},
		{
			name: "internal",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("fetch retries exhausted"),
			expected: 5,
		},
		{
			name:     "plain error",
			err:      errors.New("something odd"),
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCodeForError(tt.err))
		})
	}
}

func TestErrorMessagePrefersBuilderMsg(t *testing.T) {
	err := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("unknown result: ghost").
		WithCause(errors.New("open results/ghost.yaml: no such file"))
	assert.Equal(t, "unknown result: ghost", errorMessage(err))

	assert.Equal(t, "plain", errorMessage(errors.New("plain")))
}
