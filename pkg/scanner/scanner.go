// Package scanner finds Java source files under a directory tree,
// honoring the exclusion rules from the configuration.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/diffgrader/diffgrader/pkg/config"
)

// Scanner finds Java source files in a directory.
type Scanner struct {
	config *config.Config
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// IsJavaFile reports whether a path names a Java source file.
func IsJavaFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".java")
}

// ScanDir recursively scans a directory for Java source files.
// Paths are validated to stay within the root so symlinks cannot pull
// in files from outside the scanned tree.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 64)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			// Trailing separator so directory rules apply to the entry itself.
			if path != root && s.config.ShouldExclude(relPath+string(filepath.Separator)) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.config.ShouldExclude(relPath) {
			return nil
		}
		if IsJavaFile(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// ScanFile checks if a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if s.config.ShouldExclude(filepath.Base(path)) {
		return false, nil
	}
	return IsJavaFile(path), nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
