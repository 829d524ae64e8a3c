package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Working directory naming
const (
	WorkDirPrefix = "mashup-"
)

// File extensions to skip: partial downloads left by yt-dlp
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp"}
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// NewWorkDir creates a fresh, uniquely named directory under base for one run.
// An empty base means the system temp directory.
func NewWorkDir(base, runID string) (string, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := CreateDirectoryIfNotExists(base); err != nil {
		return "", fmt.Errorf("failed to create base directory %s: %w", base, err)
	}

	pattern := WorkDirPrefix + "*"
	if runID != "" {
		pattern = WorkDirPrefix + runID + "-*"
	}
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}
	return dir, nil
}

// RemoveWorkDir deletes a working directory and everything inside it.
// It refuses paths that were not created by NewWorkDir.
func RemoveWorkDir(dir string) error {
	if dir == "" {
		return nil
	}
	clean := filepath.Clean(dir)
	if !strings.HasPrefix(filepath.Base(clean), WorkDirPrefix) {
		return fmt.Errorf("refusing to remove %s: not a working directory", dir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("failed to remove working directory %s: %w", dir, err)
	}
	return nil
}

// FindFileByPrefix returns the file in dir whose name starts with prefix and
// ends with ext. Partial download files are ignored. When several match, the
// lexically first one wins.
func FindFileByPrefix(dir, prefix, ext string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("directory is empty")
	}
	if prefix == "" {
		return "", fmt.Errorf("file prefix is empty")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || isPartialFile(name) {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("file not found: %s*%s in %s", prefix, ext, dir)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// isPartialFile checks if a filename is an in-progress download artifact
func isPartialFile(filename string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
