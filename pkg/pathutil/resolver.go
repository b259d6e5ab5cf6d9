// Package pathutil provides centralized path management for billed's data
// directory: the submission journal, the emulator database and receipts.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathResolver manages the paths under one data root.
type PathResolver struct {
	dataRoot       string
	journalPath    string
	emulatorDBPath string
	uploadDir      string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataRoot is the root directory for all data files (e.g., ~/.billed)
	DataRoot string
	// JournalPath is the path to the SQLite submission journal
	JournalPath string
	// EmulatorDBPath is the path to the emulator's bbolt database
	EmulatorDBPath string
	// UploadDir is the directory receipts are stored in by the emulator
	UploadDir string
}

// New creates a new PathResolver with the given configuration.
// Empty paths default to files under DataRoot:
//   - JournalPath: {DataRoot}/billed.db
//   - EmulatorDBPath: {DataRoot}/emulator.db
//   - UploadDir: {DataRoot}/uploads
//
// A leading "~/" is expanded to the home directory in every path.
func New(config Config) *PathResolver {
	root := ExpandHome(config.DataRoot)
	if root == "" {
		root = "data"
	}

	return &PathResolver{
		dataRoot:       root,
		journalPath:    orDefault(config.JournalPath, filepath.Join(root, "billed.db")),
		emulatorDBPath: orDefault(config.EmulatorDBPath, filepath.Join(root, "emulator.db")),
		uploadDir:      orDefault(config.UploadDir, filepath.Join(root, "uploads")),
	}
}

func orDefault(path, def string) string {
	if path == "" {
		return def
	}
	return ExpandHome(path)
}

// ExpandHome replaces a leading "~/" with the user's home directory. The
// path is returned unchanged when the home directory is unknown.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// GetDataRoot returns the data root directory.
func (p *PathResolver) GetDataRoot() string {
	return p.dataRoot
}

// GetJournalPath returns the submission journal path.
func (p *PathResolver) GetJournalPath() string {
	return p.journalPath
}

// GetEmulatorDBPath returns the emulator database path.
func (p *PathResolver) GetEmulatorDBPath() string {
	return p.emulatorDBPath
}

// GetUploadDir returns the receipts directory.
func (p *PathResolver) GetUploadDir() string {
	return p.uploadDir
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}
