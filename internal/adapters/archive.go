package adapters

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/ulikunitz/xz"

	"buildforge/internal/shared"
)

// archiveEpoch is the timestamp every extracted and packaged entry is
// normalized to, so identical inputs yield byte-identical trees.
var archiveEpoch = time.Unix(0, 0).UTC()

// ExtractArchive unpacks a tar archive (optionally gz, bz2 or xz
// compressed, chosen by the location's extension) into dest. Entry
// paths are confined to dest; timestamps are normalized.
func ExtractArchive(data []byte, location, dest string) error {
	reader, err := decompress(data, location)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return extractErr(location, err)
	}

	var dirs []string
	tarReader := tar.NewReader(reader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extractErr(location, err)
		}
		target, err := shared.SafeJoin(dest, header.Name)
		if err != nil {
			return extractErr(location, err)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)&0o777|0o700); err != nil {
				return extractErr(location, err)
			}
			dirs = append(dirs, target)
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return extractErr(location, err)
			}
			file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777)
			if err != nil {
				return extractErr(location, err)
			}
			if _, err := io.Copy(file, tarReader); err != nil {
				file.Close()
				return extractErr(location, err)
			}
			if err := file.Close(); err != nil {
				return extractErr(location, err)
			}
			if err := os.Chtimes(target, archiveEpoch, archiveEpoch); err != nil {
				return extractErr(location, err)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return extractErr(location, err)
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return extractErr(location, err)
			}
		}
	}

	// Children touch parent mtimes, so directories are normalized last,
	// deepest first.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if err := os.Chtimes(dir, archiveEpoch, archiveEpoch); err != nil {
			return extractErr(location, err)
		}
	}
	return nil
}

func decompress(data []byte, location string) (io.Reader, error) {
	raw := bytes.NewReader(data)
	switch {
	case strings.HasSuffix(location, ".tar.gz"), strings.HasSuffix(location, ".tgz"):
		reader, err := gzip.NewReader(raw)
		if err != nil {
			return nil, extractErr(location, err)
		}
		return reader, nil
	case strings.HasSuffix(location, ".tar.bz2"), strings.HasSuffix(location, ".tbz2"):
		return bzip2.NewReader(raw), nil
	case strings.HasSuffix(location, ".tar.xz"), strings.HasSuffix(location, ".txz"):
		reader, err := xz.NewReader(raw)
		if err != nil {
			return nil, extractErr(location, err)
		}
		return reader, nil
	case strings.HasSuffix(location, ".tar"):
		return raw, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported archive format: " + location)
	}
}

// CreateArchive packs srcDir into a deterministic tar.gz: entries in
// sorted path order, timestamps normalized, numeric ids zeroed, modes
// reduced to 0644/0755 by the executable bit.
func CreateArchive(srcDir string) ([]byte, error) {
	var paths []string
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to walk output directory").
			WithCause(err)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, path := range paths {
		info, err := os.Lstat(path)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to stat output entry").
				WithCause(err)
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to relativize output entry").
				WithCause(err)
		}
		rel = filepath.ToSlash(rel)

		switch {
		case info.IsDir():
			header := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     rel + "/",
				Mode:     0o755,
				ModTime:  archiveEpoch,
			}
			if err := tw.WriteHeader(header); err != nil {
				return nil, packErr(err)
			}
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return nil, packErr(err)
			}
			header := &tar.Header{
				Typeflag: tar.TypeSymlink,
				Name:     rel,
				Linkname: link,
				Mode:     0o777,
				ModTime:  archiveEpoch,
			}
			if err := tw.WriteHeader(header); err != nil {
				return nil, packErr(err)
			}
		case info.Mode().IsRegular():
			mode := int64(0o644)
			if info.Mode()&0o111 != 0 {
				mode = 0o755
			}
			header := &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     rel,
				Mode:     mode,
				Size:     info.Size(),
				ModTime:  archiveEpoch,
			}
			if err := tw.WriteHeader(header); err != nil {
				return nil, packErr(err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, packErr(err)
			}
			if _, err := tw.Write(data); err != nil {
				return nil, packErr(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, packErr(err)
	}
	if err := gz.Close(); err != nil {
		return nil, packErr(err)
	}
	return buf.Bytes(), nil
}

func extractErr(location string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to extract archive: " + location).
		WithCause(err)
}

func packErr(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to pack output bundle").
		WithCause(err)
}
