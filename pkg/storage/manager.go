package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ListExt is the extension of username list files
const ListExt = ".txt"

// Manager writes username list files into one directory and remembers which
// lists already exist there
type Manager struct {
	outputDir string
	lists     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		lists:     make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records the list files already in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ListExt {
			m.lists[strings.TrimSuffix(entry.Name(), ListExt)] = true
		}
	}

	return nil
}

// listName strips the list extension so "a" and "a.txt" name the same list
func listName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), ListExt)
}

// Exists reports whether the named list is already in the output directory
func (m *Manager) Exists(name string) bool {
	name = listName(name)

	m.mu.RLock()
	known := m.lists[name]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(m.Path(name)); err == nil {
		m.mu.Lock()
		m.lists[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Path is where the named list lives
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, listName(name)+ListExt)
}

// SaveList writes the content of r as the named list. The file is written
// beside its final name and renamed into place, so a reader never sees a
// partial list.
func (m *Manager) SaveList(r io.Reader, name string) (string, error) {
	filename := m.Path(name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write list: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.lists[listName(name)] = true
	m.mu.Unlock()

	return filename, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetListCount returns the number of list files known in the directory
func (m *Manager) GetListCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lists)
}
