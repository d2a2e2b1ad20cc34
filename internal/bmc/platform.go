package bmc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// platform is what the asset set depends on.
type platform struct {
	goos string
	// nativeArchive is the jar holding the viewer's native libraries.
	nativeArchive string
}

// nativePrefixes maps a supported GOOS to the native jar name prefix the
// firmware uses.
var nativePrefixes = map[string]string{
	"linux":   "Linux_x86_",
	"windows": "Win",
	"darwin":  "Mac",
}

func resolvePlatform(goos string, bits int) (platform, error) {
	prefix, ok := nativePrefixes[goos]
	if !ok {
		return platform{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	if bits != 32 && bits != 64 {
		return platform{}, fmt.Errorf("%w: %s with %d-bit pointers", ErrUnsupportedPlatform, goos, bits)
	}
	return platform{
		goos:          goos,
		nativeArchive: prefix + strconv.Itoa(bits) + ".jar",
	}, nil
}

// dataRoot returns the per-user application data directory for goos.
func dataRoot(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	switch goos {
	case "linux":
		if dir := getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
		h, err := home()
		if err != nil {
			return "", err
		}
		return filepath.Join(h, ".local", "share"), nil
	case "windows":
		if dir := getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		return "", fmt.Errorf("LOCALAPPDATA is not set")
	case "darwin":
		h, err := home()
		if err != nil {
			return "", err
		}
		return filepath.Join(h, "Library", "Application Support"), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
}

// cacheDirectory computes the asset directory for this server on first use
// and returns the same path afterwards.
func (s *Session) cacheDirectory(p platform) (string, error) {
	if s.cacheDir != "" {
		return s.cacheDir, nil
	}
	root := s.cfg.DataRoot
	if root == "" {
		var err error
		root, err = dataRoot(p.goos, os.Getenv, os.UserHomeDir)
		if err != nil {
			return "", fmt.Errorf("locate data directory: %w", err)
		}
	}
	s.cacheDir = filepath.Join(root, s.cfg.CacheDirName, s.server)
	return s.cacheDir, nil
}
