package app

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"buildforge/tests/testutil"
)

func TestValidateSampleProject(t *testing.T) {
	root := filepath.Join(testutil.RepoRoot(t), "fixtures", "sample-project")

	result, err := NewService().Validate(t.Context(), ValidateRequest{ProjectRoot: root})
	require.NoError(t, err)
	require.Equal(t, "sample-project", result.ProjectName)
	require.Equal(t, 1, result.Sources)
	require.Equal(t, 1, result.Groups)
	require.Equal(t, 1, result.Results)
}

func TestValidateRequiresProjectRoot(t *testing.T) {
	_, err := NewService().Validate(t.Context(), ValidateRequest{})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestValidateRejectsBrokenDescriptor(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "project.yaml"), []byte(
		"name: broken\nservers:\n  - name: upstream\n    url: file:///srv/files\n"))
	testutil.WriteFile(t, filepath.Join(root, "results", "app.yaml"), []byte(
		"version: \"1\"\nscript: scripts/app.sh\ndepends:\n  - ghost\n"))

	_, err := NewService().Validate(t.Context(), ValidateRequest{ProjectRoot: root})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	require.Contains(t, err.Error(), `references unknown dependency "ghost"`)
}
