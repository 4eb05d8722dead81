// Package storage persists crawl progress as JSON snapshots.
//
// Each target has at most one in-progress snapshot, named after the page
// it was written at:
//
//	{in_progress}/2024-05-01_berlin_acme_page_3.json
//
// Saving again moves that snapshot to the new page name. A final save moves
// it into the completed directory without the page suffix:
//
//	{completed}/2024-05-01_berlin_acme.json
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/models"
	"peoplescraper/pkg/normalize"
)

// DateLayout prefixes every snapshot name.
const DateLayout = "2006-01-02"

// Manager writes, moves and finalizes snapshots.
type Manager struct {
	inProgressDir string
	completedDir  string
	now           func() time.Time
	logger        logger.Logger
}

// NewManager creates a new storage manager and both of its directories.
func NewManager(inProgressDir, completedDir string, log logger.Logger) (*Manager, error) {
	for _, dir := range []string{inProgressDir, completedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Manager{
		inProgressDir: inProgressDir,
		completedDir:  completedDir,
		now:           time.Now,
		logger:        log,
	}, nil
}

// WithClock replaces the clock used for the date prefix.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// baseName uses the date the target was first saved on, so a crawl that
// runs past midnight keeps naming its files after the day it started.
func (m *Manager) baseName(state *models.CrawlState) string {
	date := state.StartedOn
	if date == "" {
		date = m.now().Format(DateLayout)
	}
	return fmt.Sprintf("%s_%s_%s",
		date,
		normalize.Slug(state.Target.City),
		normalize.Slug(state.Target.Company),
	)
}

// SnapshotPath is where Save(state, false) writes.
func (m *Manager) SnapshotPath(state *models.CrawlState) string {
	name := fmt.Sprintf("%s_page_%d.json", m.baseName(state), state.CurrentPage)
	return filepath.Join(m.inProgressDir, name)
}

// FinalPath is where Save(state, true) writes.
func (m *Manager) FinalPath(state *models.CrawlState) string {
	return filepath.Join(m.completedDir, m.baseName(state)+".json")
}

// Save writes state.Collected and points state.CheckpointPath at the file
// just written. The previous snapshot of the target, if any, is removed
// once the new file is in place.
func (m *Manager) Save(state *models.CrawlState, final bool) (string, error) {
	if state.StartedOn == "" {
		state.StartedOn = m.now().Format(DateLayout)
	}
	path := m.SnapshotPath(state)
	if final {
		path = m.FinalPath(state)
	}

	data, err := Encode(state.Collected)
	if err != nil {
		return "", err
	}

	if err := WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}

	previous := state.CheckpointPath
	if previous != "" && previous != path {
		if err := os.Remove(previous); err != nil && !os.IsNotExist(err) {
			m.logger.WarnWithFields("Failed to remove previous snapshot", map[string]interface{}{
				"path":  previous,
				"error": err.Error(),
			})
		}
	}
	state.CheckpointPath = path

	fields := map[string]interface{}{
		"target":  state.Target.String(),
		"page":    state.CurrentPage,
		"records": len(state.Collected),
		"path":    path,
	}
	switch {
	case final:
		m.logger.InfoWithFields("Results finalized", fields)
	case previous == "":
		m.logger.InfoWithFields("First snapshot created", fields)
	default:
		m.logger.DebugWithFields("Snapshot updated", fields)
	}

	return path, nil
}

// Encode renders records as indented JSON with non-ASCII text kept as is.
func Encode(records []models.EmployeeRecord) ([]byte, error) {
	if records == nil {
		records = []models.EmployeeRecord{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads the records of a snapshot or result file.
func Load(path string) ([]models.EmployeeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var records []models.EmployeeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return records, nil
}
