package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"buildforge/internal/shared"
	"buildforge/internal/types"
	"buildforge/tests/testutil"
)

// serveFiles lays the given archives out under a directory served over
// the file transport and returns a store plus the matching server list.
func serveFiles(t *testing.T, files map[string][]byte) (*DirStore, []types.ServerConfig) {
	t.Helper()
	serverRoot := t.TempDir()
	for location, data := range files {
		testutil.WriteFile(t, filepath.Join(serverRoot, location), data)
	}
	store := NewDirStore(t.TempDir(), NewTransportAdapter())
	servers := []types.ServerConfig{{Name: "upstream", URL: "file://" + serverRoot}}
	return store, servers
}

func TestProvisionBuildsFullSandbox(t *testing.T) {
	baseArchive := testutil.TarGz(t, map[string]string{
		"bin/":   "",
		"bin/sh": "#!/bin/true",
	})
	helloArchive := testutil.TarGz(t, map[string]string{
		"hello-1.0/":          "",
		"hello-1.0/configure": "#!/bin/sh",
	})
	store, servers := serveFiles(t, map[string][]byte{
		"chroot/base.tar.gz": baseArchive,
		"pool/hello.tar.gz":  helloArchive,
		"pool/site.conf":     []byte("colour=on\n"),
	})

	project := types.Project{
		Config: types.ProjectConfig{Name: "demo", Servers: servers},
		Chroot: types.ChrootDescriptor{
			DefaultGroups: []string{"base"},
			Groups: []types.ChrootGroup{{
				Name:  "base",
				Files: []types.FileEntry{{Server: "upstream", Location: "chroot/base.tar.gz"}},
			}},
		},
		Sources: []types.SourceDescriptor{{
			Name:   "hello",
			Server: "upstream",
			Env:    map[string]string{"HELLO_OPTS": "--enable-nls"},
			Files: []types.FileEntry{
				{Location: "pool/hello.tar.gz", SHA1: shared.SHA1Hex(helloArchive), Unpack: "hello-1.0"},
				{Location: "pool/site.conf", Copy: "hello-1.0/site.conf"},
			},
		}},
	}
	result := types.ResultDescriptor{Name: "hello", Version: "1.0", Sources: []string{"hello"}}

	sandbox, warnings, err := NewSandboxAdapter(store).Provision(t.Context(), project, result, t.TempDir())
	require.NoError(t, err)
	defer NewSandboxAdapter(store).Discard(sandbox)

	for _, dir := range []string{"build", "root", "env", "init", "script", "in", "dep", "out"} {
		info, err := os.Stat(filepath.Join(sandbox.Root, dir))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	_, err = os.Stat(filepath.Join(sandbox.RootDir(), "bin", "sh"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(sandbox.BuildDir(), "hello-1.0", "configure"))
	require.NoError(t, err)

	conf, err := os.ReadFile(filepath.Join(sandbox.BuildDir(), "hello-1.0", "site.conf"))
	require.NoError(t, err)
	require.Equal(t, []byte("colour=on\n"), conf)

	opts, err := os.ReadFile(filepath.Join(sandbox.EnvDir(), "HELLO_OPTS"))
	require.NoError(t, err)
	require.Equal(t, []byte("--enable-nls"), opts)

	// The chroot archive and the copied file carry no checksum.
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0], "chroot/base.tar.gz used without checksum verification")
	require.Contains(t, warnings[1], "pool/site.conf used without checksum verification")
}

func TestProvisionAppliesPatchToUnpackedTree(t *testing.T) {
	requirePatchTool(t)
	helloArchive := testutil.TarGz(t, map[string]string{
		"hello-1.0/":             "",
		"hello-1.0/greeting.txt": "hello world\n",
	})
	store, servers := serveFiles(t, map[string][]byte{
		"pool/hello.tar.gz": helloArchive,
		"pool/fix.diff":     []byte(greetingDiff),
	})
	level := 1
	project := types.Project{
		Config: types.ProjectConfig{Name: "demo", Servers: servers},
		Sources: []types.SourceDescriptor{{
			Name:   "hello",
			Server: "upstream",
			Files: []types.FileEntry{
				{Location: "pool/hello.tar.gz", SHA1: shared.SHA1Hex(helloArchive), Unpack: "hello-1.0"},
				{Location: "pool/fix.diff", Patch: &level},
			},
		}},
	}
	result := types.ResultDescriptor{Name: "hello", Version: "1.0", Sources: []string{"hello"}}

	sandbox, _, err := NewSandboxAdapter(store).Provision(t.Context(), project, result, t.TempDir())
	require.NoError(t, err)
	defer NewSandboxAdapter(store).Discard(sandbox)

	content, err := os.ReadFile(filepath.Join(sandbox.BuildDir(), "hello-1.0", "greeting.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello patched world\n"), content)
}

func TestProvisionDiscardsSandboxOnFailure(t *testing.T) {
	// The archive does not create the directory the entry declares.
	wrongArchive := testutil.TarGz(t, map[string]string{
		"other-dir/":     "",
		"other-dir/file": "x",
	})
	store, servers := serveFiles(t, map[string][]byte{"pool/wrong.tar.gz": wrongArchive})
	project := types.Project{
		Config: types.ProjectConfig{Name: "demo", Servers: servers},
		Sources: []types.SourceDescriptor{{
			Name:   "wrong",
			Server: "upstream",
			Files:  []types.FileEntry{{Location: "pool/wrong.tar.gz", Unpack: "expected-dir"}},
		}},
	}
	result := types.ResultDescriptor{Name: "wrong", Version: "1.0", Sources: []string{"wrong"}}

	workDir := t.TempDir()
	_, _, err := NewSandboxAdapter(store).Provision(t.Context(), project, result, workDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not create directory expected-dir")

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProvisionPatchFailureDiscardsSandbox(t *testing.T) {
	requirePatchTool(t)
	helloArchive := testutil.TarGz(t, map[string]string{
		"hello-1.0/":             "",
		"hello-1.0/greeting.txt": "completely different\n",
	})
	store, servers := serveFiles(t, map[string][]byte{
		"pool/hello.tar.gz": helloArchive,
		"pool/fix.diff":     []byte(greetingDiff),
	})
	level := 1
	project := types.Project{
		Config: types.ProjectConfig{Name: "demo", Servers: servers},
		Sources: []types.SourceDescriptor{{
			Name:   "hello",
			Server: "upstream",
			Files: []types.FileEntry{
				{Location: "pool/hello.tar.gz", SHA1: shared.SHA1Hex(helloArchive), Unpack: "hello-1.0"},
				{Location: "pool/fix.diff", Patch: &level},
			},
		}},
	}
	result := types.ResultDescriptor{Name: "hello", Version: "1.0", Sources: []string{"hello"}}

	workDir := t.TempDir()
	_, _, err := NewSandboxAdapter(store).Provision(t.Context(), project, result, workDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "patch did not apply cleanly")

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProvisionWarnsWhenCopyOverwrites(t *testing.T) {
	store, servers := serveFiles(t, map[string][]byte{
		"pool/a.conf": []byte("from a\n"),
		"pool/b.conf": []byte("from b\n"),
	})
	project := types.Project{
		Config: types.ProjectConfig{Name: "demo", Servers: servers},
		Sources: []types.SourceDescriptor{{
			Name:   "config",
			Server: "upstream",
			Files: []types.FileEntry{
				{Location: "pool/a.conf", Copy: "etc/site.conf"},
				{Location: "pool/b.conf", Copy: "etc/site.conf"},
			},
		}},
	}
	result := types.ResultDescriptor{Name: "config", Version: "1.0", Sources: []string{"config"}}

	sandbox, warnings, err := NewSandboxAdapter(store).Provision(t.Context(), project, result, t.TempDir())
	require.NoError(t, err)
	defer NewSandboxAdapter(store).Discard(sandbox)

	var overwrite bool
	for _, warning := range warnings {
		if warning == "source config: copy overwrites etc/site.conf (last declared wins)" {
			overwrite = true
		}
	}
	require.True(t, overwrite)

	content, err := os.ReadFile(filepath.Join(sandbox.BuildDir(), "etc", "site.conf"))
	require.NoError(t, err)
	require.Equal(t, []byte("from b\n"), content)
}
