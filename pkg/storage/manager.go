package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"inatscraper/pkg/config"
)

// Manager lays out the dataset on disk: one directory per category under the
// output root, files named by zero padded sequence number.
type Manager struct {
	root      string
	extension string
	atomic    bool
}

// NewManager creates the output root if needed and returns a Manager for it
func NewManager(cfg *config.OutputConfig) (*Manager, error) {
	if err := os.MkdirAll(cfg.BaseDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := strings.TrimPrefix(cfg.Extension, ".")
	if ext == "" {
		ext = "jpg"
	}

	return &Manager{
		root:      cfg.BaseDirectory,
		extension: ext,
		atomic:    cfg.AtomicWrites,
	}, nil
}

// Root returns the output root directory
func (m *Manager) Root() string {
	return m.root
}

// CategoryDir returns the directory for a sanitized category name
func (m *Manager) CategoryDir(category string) string {
	return filepath.Join(m.root, category)
}

// EnsureCategoryDir creates the category directory. An existing directory is
// not an error.
func (m *Manager) EnsureCategoryDir(category string) (string, error) {
	dir := m.CategoryDir(category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create category directory %s: %w", dir, err)
	}
	return dir, nil
}

// FileName formats a sequence number as the on-disk file name, e.g. 0007.jpg
func (m *Manager) FileName(seq int) string {
	return fmt.Sprintf("%04d.%s", seq, m.extension)
}

// DestinationPath is the path the seq-th asset of a category is written to
func (m *Manager) DestinationPath(category string, seq int) string {
	return filepath.Join(m.CategoryDir(category), m.FileName(seq))
}

// Create opens dest for writing. With atomic writes the data goes to a
// hidden temporary file in the same directory and only appears under dest
// on Commit.
func (m *Manager) Create(dest string) (*File, error) {
	if !m.atomic {
		f, err := os.Create(dest)
		if err != nil {
			return nil, fmt.Errorf("failed to create file: %w", err)
		}
		return &File{f: f, dest: dest}, nil
	}

	dir, base := filepath.Split(dest)
	f, err := os.CreateTemp(dir, "."+base+".*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	return &File{f: f, dest: dest, tmp: f.Name()}, nil
}

// WriteJSON writes v as indented JSON to path, replacing it atomically
func (m *Manager) WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadJSON decodes the JSON file at path into v
func (m *Manager) ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// CountAssets counts committed asset files in a category directory.
// A missing directory counts as zero.
func (m *Manager) CountAssets(category string) (int, error) {
	entries, err := os.ReadDir(m.CategoryDir(category))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	count := 0
	suffix := "." + m.extension
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, suffix) {
			count++
		}
	}
	return count, nil
}

// File is an in-progress asset write
type File struct {
	f    *os.File
	dest string
	tmp  string
	done bool
}

// Write implements io.Writer
func (f *File) Write(p []byte) (int, error) {
	return f.f.Write(p)
}

// ReadFrom streams r into the file
func (f *File) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(f.f, r)
}

// Commit closes the file and, for atomic writes, moves it into place
func (f *File) Commit() error {
	if f.done {
		return nil
	}
	f.done = true

	if err := f.f.Close(); err != nil {
		if f.tmp != "" {
			os.Remove(f.tmp)
		}
		return fmt.Errorf("failed to close file: %w", err)
	}
	if f.tmp == "" {
		return nil
	}
	if err := os.Rename(f.tmp, f.dest); err != nil {
		os.Remove(f.tmp)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Abort closes the file after a failed write. Atomic writes leave nothing
// behind; direct writes keep whatever was written so far.
func (f *File) Abort() {
	if f.done {
		return
	}
	f.done = true

	f.f.Close()
	if f.tmp != "" {
		os.Remove(f.tmp)
	}
}
