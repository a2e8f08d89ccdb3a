package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"buildforge/internal/ports"
	"buildforge/internal/shared"
	"buildforge/internal/types"
)

// DirStore is a directory-backed content store. Verified fetches are
// cached content-addressed by SHA-1; unverified fetches are cached
// advisorily by (server, location). Result bundles live under
// results/<name>/<version> and are immutable once registered.
type DirStore struct {
	Root      string
	Transport ports.TransportPort

	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func NewDirStore(root string, transport ports.TransportPort) *DirStore {
	return &DirStore{
		Root:      root,
		Transport: transport,
		keys:      map[string]*sync.Mutex{},
	}
}

// lockKey serializes writers per cache key so two workers fetching the
// same content do not race.
func (s *DirStore) lockKey(key string) func() {
	s.mu.Lock()
	lock, ok := s.keys[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keys[key] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (s *DirStore) Fetch(ctx context.Context, server types.ServerConfig, location, sha1 string) (types.Content, error) {
	if sha1 != "" {
		return s.fetchVerified(ctx, server, location, sha1)
	}
	return s.fetchUnverified(ctx, server, location)
}

func (s *DirStore) fetchVerified(ctx context.Context, server types.ServerConfig, location, sha1 string) (types.Content, error) {
	unlock := s.lockKey("sha1:" + sha1)
	defer unlock()

	cachePath := filepath.Join(s.Root, "cache", "sha1", sha1)
	if data, err := os.ReadFile(cachePath); err == nil {
		return types.Content{Bytes: data, Verification: types.Verified(sha1)}, nil
	}

	data, err := s.Transport.Fetch(ctx, server, location)
	if err != nil {
		return types.Content{}, err
	}
	actual := shared.SHA1Hex(data)
	if actual != sha1 {
		return types.Content{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("checksum mismatch for %s: expected %s actual %s", location, sha1, actual))
	}
	if err := s.writeCache(cachePath, data); err != nil {
		return types.Content{}, err
	}
	return types.Content{Bytes: data, Verification: types.Verified(sha1)}, nil
}

func (s *DirStore) fetchUnverified(ctx context.Context, server types.ServerConfig, location string) (types.Content, error) {
	key := shared.SHA256Hex([]byte(server.Name + "|" + location))
	unlock := s.lockKey("loc:" + key)
	defer unlock()

	// Advisory cache only: a later fetch may legitimately see different
	// bytes, so the content stays tagged unverified either way.
	cachePath := filepath.Join(s.Root, "cache", "loc", key)
	if data, err := os.ReadFile(cachePath); err == nil {
		return types.Content{Bytes: data, Verification: types.Unverified()}, nil
	}

	data, err := s.Transport.Fetch(ctx, server, location)
	if err != nil {
		return types.Content{}, err
	}
	if err := s.writeCache(cachePath, data); err != nil {
		return types.Content{}, err
	}
	log.Debug().Str("server", server.Name).Str("location", location).
		Msg("cached unverified content")
	return types.Content{Bytes: data, Verification: types.Unverified()}, nil
}

func (s *DirStore) writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create cache directory").
			WithCause(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage cache file").
			WithCause(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write cache file").
			WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close cache file").
			WithCause(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to commit cache file").
			WithCause(err)
	}
	return nil
}

func (s *DirStore) PutResult(ctx context.Context, meta types.ResultMeta, bundlePath string) (types.ContentHandle, error) {
	unlock := s.lockKey("result:" + meta.Name + "/" + meta.Version)
	defer unlock()

	dir := filepath.Join(s.Root, "results", meta.Name, meta.Version)
	if existing, err := s.readMeta(dir); err == nil {
		// Re-registering identical content is the idempotent no-op the
		// re-run property needs; different content for the same
		// name+version is a hard error.
		if existing.ContentSHA256 == meta.ContentSHA256 {
			return types.ContentHandle{BundlePath: filepath.Join(dir, "bundle.tar.gz"), Meta: existing}, nil
		}
		return types.ContentHandle{}, errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("result %s %s already registered with different content", meta.Name, meta.Version))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.ContentHandle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create result directory").
			WithCause(err)
	}
	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return types.ContentHandle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read result bundle").
			WithCause(err)
	}
	target := filepath.Join(dir, "bundle.tar.gz")
	if err := s.writeCache(target, data); err != nil {
		return types.ContentHandle{}, err
	}
	metaBytes, err := yaml.Marshal(meta)
	if err != nil {
		return types.ContentHandle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode result metadata").
			WithCause(err)
	}
	if err := s.writeCache(filepath.Join(dir, "meta.yaml"), metaBytes); err != nil {
		return types.ContentHandle{}, err
	}
	log.Info().Str("result", meta.Name).Str("version", meta.Version).
		Str("sha256", meta.ContentSHA256).Msg("result registered")
	return types.ContentHandle{BundlePath: target, Meta: meta}, nil
}

func (s *DirStore) GetResult(name, version string) (types.ContentHandle, error) {
	dir := filepath.Join(s.Root, "results", name, version)
	meta, err := s.readMeta(dir)
	if err != nil {
		return types.ContentHandle{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("result %s %s not found", name, version)).
			WithCause(err)
	}
	return types.ContentHandle{BundlePath: filepath.Join(dir, "bundle.tar.gz"), Meta: meta}, nil
}

func (s *DirStore) LatestResult(name string) (types.ContentHandle, error) {
	versions, err := s.Versions(name)
	if err != nil {
		return types.ContentHandle{}, err
	}
	if len(versions) == 0 {
		return types.ContentHandle{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no versions registered for result " + name)
	}
	return s.GetResult(name, versions[len(versions)-1])
}

// Versions lists registered versions of a result in ascending version
// order. Versions that do not parse as Debian-style versions sort
// lexically before the ones that do.
func (s *DirStore) Versions(name string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, "results", name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list result versions").
			WithCause(err)
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		vi, errI := debversion.NewVersion(versions[i])
		vj, errJ := debversion.NewVersion(versions[j])
		if errI != nil || errJ != nil {
			return versions[i] < versions[j]
		}
		return vi.LessThan(vj)
	})
	return versions, nil
}

func (s *DirStore) readMeta(dir string) (types.ResultMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, "meta.yaml"))
	if err != nil {
		return types.ResultMeta{}, err
	}
	var meta types.ResultMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return types.ResultMeta{}, err
	}
	return meta, nil
}

var _ ports.ContentStorePort = (*DirStore)(nil)
