package bmc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
)

// EnsureAssetsCached downloads whichever viewer jars are not yet in the
// cache directory and unpacks the native jar. Files already on disk are
// never fetched again.
//
// Concurrent runs against the same server share the directory without
// locking and may race.
func (s *Session) EnsureAssetsCached(ctx context.Context) error {
	p, err := resolvePlatform(s.cfg.GOOS, s.cfg.PointerBits)
	if err != nil {
		return err
	}
	dir, err := s.cacheDirectory(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssetDownload, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create cache directory: %w", ErrAssetDownload, err)
	}

	for _, name := range []string{s.cfg.CoreArchive, s.cfg.OptionalArchive, p.nativeArchive} {
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrAssetDownload, err)
		}

		err := s.download(ctx, name, target)
		if err != nil {
			if name == s.cfg.OptionalArchive && isNotFound(err) {
				s.logger.Info("optional asset not on server, skipping", "asset", name)
				continue
			}
			return fmt.Errorf("%w: %s: %w", ErrAssetDownload, name, err)
		}

		if name == p.nativeArchive {
			s.logger.Info("extracting native libraries", "path", target)
			if err := unpack(target, dir); err != nil {
				// Drop the jar so the next run downloads it again.
				os.Remove(target)
				return fmt.Errorf("%w: extract %s: %w", ErrAssetDownload, name, err)
			}
		}
	}

	if s.state < AssetsReady {
		s.state = AssetsReady
	}
	return nil
}

// download fetches one asset into target through a temporary file, so an
// interrupted transfer never leaves a file that would be taken as complete.
func (s *Session) download(ctx context.Context, name, target string) error {
	source := s.endpoint(s.cfg.AssetPath+name, "")
	s.logger.Info("downloading", "url", source, "path", target)

	resp, err := s.get(ctx, source, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	var done bool
	defer func() {
		if !done {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrTransport, source, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	done = true
	s.logger.Info("downloaded", "asset", name, "size", humanize.Bytes(uint64(n)))
	return nil
}

// unpack extracts every regular file of the zip archive at path into dir,
// overwriting existing files.
func unpack(path, dir string) error {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, file := range archive.File {
		target := filepath.Join(dir, file.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("entry %q escapes %s", file.Name, dir)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := unpackFile(file, target); err != nil {
			return fmt.Errorf("%s: %w", file.Name, err)
		}
	}
	return nil
}

func unpackFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
