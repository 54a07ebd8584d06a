package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ManifestFile is the name of the last-run manifest in the reports directory
const ManifestFile = "run_manifest.json"

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	Stage     string    `json:"stage"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Status    string    `json:"status"`
	Outputs   []string  `json:"outputs,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// RunManifest records one full refresh
type RunManifest struct {
	mu sync.RWMutex

	ID        string           `json:"id"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time,omitempty"`
	Status    string           `json:"status"`
	Stages    []StageExecution `json:"stages"`
	Error     string           `json:"error,omitempty"`
}

// NewRunManifest creates a running manifest
func NewRunManifest(id string) *RunManifest {
	return &RunManifest{
		ID:        id,
		StartTime: time.Now(),
		Status:    StatusRunning,
		Stages:    []StageExecution{},
	}
}

// RecordStageStart appends a running stage
func (m *RunManifest) RecordStageStart(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stages = append(m.Stages, StageExecution{
		Stage:     stage,
		StartTime: time.Now(),
		Status:    StatusRunning,
	})
}

// RecordStageCompletion closes the running stage of that name
func (m *RunManifest) RecordStageCompletion(stage string, outputs []string) {
	m.finishStage(stage, StatusCompleted, outputs, nil)
}

// RecordStageFailure closes the running stage and fails the run
func (m *RunManifest) RecordStageFailure(stage string, err error) {
	m.finishStage(stage, StatusFailed, nil, err)
}

func (m *RunManifest) finishStage(stage, status string, outputs []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Stages) - 1; i >= 0; i-- {
		s := &m.Stages[i]
		if s.Stage != stage || s.Status != StatusRunning {
			continue
		}
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = status
		s.Outputs = outputs
		if err != nil {
			s.Error = err.Error()
		}
		return
	}
}

// Finish sets the final status from err
func (m *RunManifest) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndTime = time.Now()
	if err != nil {
		m.Status = StatusFailed
		m.Error = err.Error()
		return
	}
	m.Status = StatusCompleted
}

// SaveToFile writes the manifest as indented JSON
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifestFromFile reads a manifest written by SaveToFile
func LoadManifestFromFile(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}
