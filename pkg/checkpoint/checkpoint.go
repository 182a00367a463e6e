package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"igunfollow/pkg/logger"
)

// Checkpoint records which usernames of a list file were already unfollowed
type Checkpoint struct {
	ListFile  string          `json:"list_file"`
	Total     int             `json:"total"`
	Completed map[string]bool `json:"completed"`
	Failed    []string        `json:"failed,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"`
}

// IsCompleted reports whether username was already unfollowed
func (c *Checkpoint) IsCompleted(username string) bool {
	return c.Completed[username]
}

// Remaining filters usernames down to those not yet unfollowed, keeping order
func (c *Checkpoint) Remaining(usernames []string) []string {
	var out []string
	for _, u := range usernames {
		if !c.IsCompleted(u) {
			out = append(out, u)
		}
	}
	return out
}

// Manager handles checkpoint operations for one list file
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a manager storing its checkpoint under dir. The file
// name is derived from the absolute path of listFile.
func NewManager(dir, listFile string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, checkpointName(listFile)),
		logger:         logger.GetLogger(),
	}, nil
}

// checkpointName keeps the base name readable and the hash unique
func checkpointName(listFile string) string {
	abs, err := filepath.Abs(listFile)
	if err != nil {
		abs = listFile
	}
	sum := sha256.Sum256([]byte(abs))
	base := strings.TrimSuffix(filepath.Base(listFile), filepath.Ext(listFile))
	return fmt.Sprintf("%s-%s.checkpoint.json", base, hex.EncodeToString(sum[:6]))
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts a fresh checkpoint and saves it
func (m *Manager) Create(listFile string, total int) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		ListFile:  listFile,
		Total:     total,
		Completed: make(map[string]bool),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"list_file": listFile,
		"path":      m.checkpointPath,
	})
	return checkpoint, nil
}

// Load returns the existing checkpoint, or nil when there is none
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Completed == nil {
		checkpoint.Completed = make(map[string]bool)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"list_file":  checkpoint.ListFile,
		"completed":  len(checkpoint.Completed),
		"updated_at": checkpoint.UpdatedAt,
	})
	return &checkpoint, nil
}

// LoadOrCreate resumes the stored checkpoint or starts a new one
func (m *Manager) LoadOrCreate(listFile string, total int) (*Checkpoint, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint != nil {
		return checkpoint, nil
	}
	return m.Create(listFile, total)
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"completed": len(checkpoint.Completed),
		"failed":    len(checkpoint.Failed),
	})
	return nil
}

// RecordResult stores the outcome for username. Failed usernames are kept
// out of Completed so a resumed run tries them again.
func (m *Manager) RecordResult(checkpoint *Checkpoint, username string, ok bool) error {
	if ok {
		checkpoint.Completed[username] = true
		checkpoint.Failed = removeString(checkpoint.Failed, username)
	} else if !containsString(checkpoint.Failed, username) {
		checkpoint.Failed = append(checkpoint.Failed, username)
	}
	return m.Save(checkpoint)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
