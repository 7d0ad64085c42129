package ingestion

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/poiesic/kernelci/core"
	"github.com/spf13/afero"
)

// ScanResult is the classification of one variant directory.
type ScanResult struct {
	Variant   string
	Artifacts map[core.ArtifactRole]string
}

// Scanner discovers variant directories under a kernel directory and
// classifies their files against the known-file registry.
type Scanner struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewScanner creates a Scanner reading from fsys.
// A nil fsys reads the host filesystem.
func NewScanner(fsys afero.Fs, logger *slog.Logger) *Scanner {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{fs: fsys, logger: logger}
}

// Scan classifies every variant directory found in baseDir/job/kernel.
// A missing kernel directory yields an empty result and no error, as does
// a path with a regular file in place of the job or kernel directory.
// A variant directory that cannot be listed is kept with no artifacts.
// Results follow directory listing order, which is by name.
func (s *Scanner) Scan(ctx context.Context, baseDir, job, kernel string) ([]ScanResult, error) {
	if !filepath.IsAbs(baseDir) {
		abs, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, err
		}
		baseDir = abs
	}
	kernelDir := filepath.Join(baseDir, job, kernel)

	variants, err := s.listDirs(kernelDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			s.logger.Debug("kernel directory not found", "dir", kernelDir)
			return nil, nil
		}
		return nil, err
	}

	results := make([]ScanResult, 0, len(variants))
	for _, variant := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		variantDir := filepath.Join(kernelDir, variant)
		files, err := s.listFiles(variantDir)
		if err != nil {
			s.logger.Warn("cannot list variant directory", "dir", variantDir, "err", err)
			files = nil
		}

		artifacts := make(map[core.ArtifactRole]string)
		for _, name := range files {
			if role, ok := core.RoleForFile(name); ok {
				artifacts[role] = filepath.Join(variantDir, name)
			}
		}
		results = append(results, ScanResult{Variant: variant, Artifacts: artifacts})
	}
	return results, nil
}

// listDirs returns the names of the immediate subdirectories of dir.
// A dir that exists but is not a directory is treated as missing.
func (s *Scanner) listDirs(dir string) ([]string, error) {
	ok, err := afero.IsDir(s.fs, dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fs.ErrNotExist
	}

	var names []string
	err = s.eachEntry(dir, func(info os.FileInfo) {
		if info.IsDir() {
			names = append(names, info.Name())
		}
	})
	return names, err
}

// listFiles returns the names of the files directly inside dir.
// Subdirectories are never entered.
func (s *Scanner) listFiles(dir string) ([]string, error) {
	var names []string
	err := s.eachEntry(dir, func(info os.FileInfo) {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	})
	return names, err
}

// eachEntry calls fn for every entry of dir, with symlinks resolved so a
// linked directory is seen as a directory.
func (s *Scanner) eachEntry(dir string, fn func(os.FileInfo)) error {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := s.fs.Stat(filepath.Join(dir, entry.Name()))
			if err != nil {
				s.logger.Warn("skipping dangling symlink", "path", filepath.Join(dir, entry.Name()), "err", err)
				continue
			}
			entry = renamedInfo{FileInfo: target, name: entry.Name()}
		}
		fn(entry)
	}
	return nil
}

// renamedInfo reports a symlink target's metadata under the link's own name.
type renamedInfo struct {
	os.FileInfo
	name string
}

func (r renamedInfo) Name() string { return r.name }
