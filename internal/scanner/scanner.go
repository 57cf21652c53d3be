// Package scanner enumerates candidate video files under a set of root
// directories, filtering by extension, include/exclude pattern, and size
// bounds, and captures each file's filesystem identity for hard-link
// awareness. Grounded on the teacher's directory-walking/caching package,
// generalized from a UI file browser into a settings-driven filter.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gwlsn/vdupes/internal/logger"
	"github.com/gwlsn/vdupes/internal/model"
	"github.com/gwlsn/vdupes/internal/settings"
	"golang.org/x/sync/singleflight"
)

// Scanner walks configured roots and yields VideoInfo skeletons.
type Scanner struct {
	group singleflight.Group
}

// New returns a ready-to-use Scanner.
func New() *Scanner {
	return &Scanner{}
}

// ProgressFunc is invoked once per scanned root, after that root is walked,
// with the running count of accepted files — the scan_progress(found_count)
// event of the external interface.
type ProgressFunc func(foundCount int)

// Scan walks every directory in cfg.Directories, returning accepted
// VideoInfo skeletons in enumeration order. It respects ctx cancellation at
// each directory-entry boundary. Per-entry failures (permission denied,
// stat errors) are logged and skipped; they never abort the walk.
func (s *Scanner) Scan(ctx context.Context, cfg *settings.Settings, onProgress ProgressFunc) ([]model.VideoInfo, error) {
	var out []model.VideoInfo
	found := 0

	for _, dir := range cfg.Directories {
		key := dir.Path
		v, err, _ := s.group.Do(key, func() (interface{}, error) {
			return s.scanRoot(ctx, dir.Path, dir.Recursive, cfg)
		})
		if err != nil {
			if err == context.Canceled {
				return out, err
			}
			logger.Warn("scan root failed", "path", dir.Path, "error", err)
			continue
		}
		infos := v.([]model.VideoInfo)
		out = append(out, infos...)
		found += len(infos)
		if onProgress != nil {
			onProgress(found)
		}

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
	}

	return out, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string, recursive bool, cfg *settings.Settings) ([]model.VideoInfo, error) {
	var out []model.VideoInfo

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn("scan entry error, skipping", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && !recursive {
				return fs.SkipDir
			}
			if !matchesDir(path, cfg) {
				return fs.SkipDir
			}
			return nil
		}

		info, err := buildVideoInfo(path, d, cfg)
		if err != nil {
			logger.Warn("skipping file", "path", path, "error", err)
			return nil
		}
		if info != nil {
			out = append(out, *info)
		}
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil && err != context.Canceled {
		return out, err
	}
	return out, nil
}

func matchesDir(path string, cfg *settings.Settings) bool {
	for _, re := range cfg.Compiled.IncludeDir {
		if !re.MatchString(path) {
			return false
		}
	}
	for _, re := range cfg.Compiled.ExcludeDir {
		if re.MatchString(path) {
			return false
		}
	}
	return true
}

func matchesFile(name string, cfg *settings.Settings) bool {
	for _, re := range cfg.Compiled.IncludeFile {
		if !re.MatchString(name) {
			return false
		}
	}
	for _, re := range cfg.Compiled.ExcludeFile {
		if re.MatchString(name) {
			return false
		}
	}
	return true
}

func hasAcceptedExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func buildVideoInfo(path string, d fs.DirEntry, cfg *settings.Settings) (*model.VideoInfo, error) {
	name := d.Name()
	if !hasAcceptedExtension(name, cfg.Extensions) {
		return nil, nil
	}
	if !matchesFile(name, cfg) {
		return nil, nil
	}

	info, err := d.Info()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if cfg.MinBytes != nil && size < *cfg.MinBytes {
		return nil, nil
	}
	if cfg.MaxBytes != nil && size > *cfg.MaxBytes {
		return nil, nil
	}

	device, inode, nlinks := fileIdentity(info)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &model.VideoInfo{
		Path:       abs,
		Device:     device,
		Inode:      inode,
		Nlinks:     nlinks,
		Size:       size,
		ModifiedAt: info.ModTime(),
	}, nil
}

// fileIdentity extracts (device, inode, nlinks) from the platform-specific
// stat struct. Returns zeros if the underlying FileInfo doesn't expose one
// (non-Unix platforms), which degrades hard-link grouping but never aborts
// the scan.
func fileIdentity(info interface{ Sys() any }) (device, inode, nlinks uint64) {
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, 0
	}
	return uint64(sys.Dev), uint64(sys.Ino), uint64(sys.Nlink)
}
