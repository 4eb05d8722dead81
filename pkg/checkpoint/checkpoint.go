package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/models"
	"peoplescraper/pkg/storage"
)

// Version is the checkpoint file format written by this package.
const Version = 1

// Checkpoint is the resumable position of one crawl session.
type Checkpoint struct {
	RunID       string             `json:"run_id"`
	Cities      []string           `json:"cities"`
	Companies   []string           `json:"companies"`
	PageLimit   int                `json:"page_limit"`
	TargetIndex int                `json:"target_index"`
	State       *models.CrawlState `json:"state,omitempty"`
	Files       []string           `json:"files"` // finalized result files in target order
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Version     int                `json:"version"`
}

// Matches reports whether the checkpoint was taken for the same run inputs.
func (c *Checkpoint) Matches(cities, companies []string, pageLimit int) bool {
	return slices.Equal(c.Cities, cities) &&
		slices.Equal(c.Companies, companies) &&
		c.PageLimit == pageLimit
}

// Manager reads and writes one checkpoint file.
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager places the named session under <data dir>/checkpoints.
func NewManager(name string) (*Manager, error) {
	base, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate data directory: %w", err)
	}
	dir := filepath.Join(base, "checkpoints")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return NewManagerAt(filepath.Join(dir, name+".checkpoint.json")), nil
}

// NewManagerAt creates a manager for an explicit checkpoint file.
func NewManagerAt(path string) *Manager {
	return &Manager{
		checkpointPath: path,
		logger:         logger.GetLogger().WithField("component", "checkpoint"),
	}
}

// WithLogger replaces the manager's logger.
func (m *Manager) WithLogger(l logger.Logger) *Manager {
	m.logger = l.WithField("component", "checkpoint")
	return m
}

// Path returns the checkpoint file location.
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create writes a fresh checkpoint for a run that has not started a target.
func (m *Manager) Create(runID string, cities, companies []string, pageLimit int) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		RunID:     runID,
		Cities:    slices.Clone(cities),
		Companies: slices.Clone(companies),
		PageLimit: pageLimit,
		Files:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   Version,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"run_id": runID,
		"path":   m.checkpointPath,
	})

	return checkpoint, nil
}

// Load reads the checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version > Version {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", checkpoint.Version, Version)
	}

	fields := map[string]interface{}{
		"run_id":       checkpoint.RunID,
		"target_index": checkpoint.TargetIndex,
		"files":        len(checkpoint.Files),
		"updated_at":   checkpoint.UpdatedAt,
	}
	if checkpoint.State != nil {
		fields["target"] = checkpoint.State.Target.String()
		fields["page"] = checkpoint.State.CurrentPage
	}
	m.logger.InfoWithFields("Checkpoint loaded", fields)

	return &checkpoint, nil
}

// Save writes the checkpoint to disk atomically.
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := storage.WriteFileAtomic(m.checkpointPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"run_id":       checkpoint.RunID,
		"target_index": checkpoint.TargetIndex,
	})

	return nil
}

// Update records the current position and saves it. state is copied.
func (m *Manager) Update(checkpoint *Checkpoint, targetIndex int, state *models.CrawlState, files []string) error {
	checkpoint.TargetIndex = targetIndex
	checkpoint.State = state.Clone()
	checkpoint.Files = slices.Clone(files)
	if checkpoint.Files == nil {
		checkpoint.Files = []string{}
	}
	return m.Save(checkpoint)
}

// Delete removes the checkpoint file. A missing file is not an error.
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists reports whether a checkpoint file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Info returns a summary of the checkpoint for display.
func (m *Manager) Info() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	info := map[string]interface{}{
		"run_id":       checkpoint.RunID,
		"cities":       checkpoint.Cities,
		"companies":    checkpoint.Companies,
		"target_index": checkpoint.TargetIndex,
		"files":        len(checkpoint.Files),
		"created_at":   checkpoint.CreatedAt,
		"updated_at":   checkpoint.UpdatedAt,
		"age":          time.Since(checkpoint.UpdatedAt),
	}
	if checkpoint.State != nil {
		info["target"] = checkpoint.State.Target.String()
		info["page"] = checkpoint.State.CurrentPage
		info["collected"] = len(checkpoint.State.Collected)
	}
	return info, nil
}

// dataDir is the per-user application data directory: $XDG_DATA_HOME or
// ~/.local/share on Unix, Application Support on macOS, %APPDATA% on Windows.
func dataDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA is not set")
		}
		return filepath.Join(appData, "peoplescraper"), nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && runtime.GOOS != "darwin" {
		return filepath.Join(xdg, "peoplescraper"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "peoplescraper"), nil
	}
	return filepath.Join(home, ".local", "share", "peoplescraper"), nil
}
