package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// MemoryBridge is an in-process RawBridge that simulates the engine's
// detection job. It backs demo mode and the debug CLI; the real engine
// lives out of process.
type MemoryBridge struct {
	// StepDelay is how long the simulated job spends per phase step.
	StepDelay time.Duration

	mu         sync.Mutex
	activities map[string]time.Time // id -> ingestion time
	status     string
	phase      string
	completed  int
	total      int
}

var _ RawBridge = (*MemoryBridge)(nil)

func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{
		StepDelay:  50 * time.Millisecond,
		activities: make(map[string]time.Time),
		status:     "idle",
	}
}

func (m *MemoryBridge) AddActivities(ctx context.Context, payloadJSON string) error {
	if !gjson.Valid(payloadJSON) {
		return fmt.Errorf("malformed ingest payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range gjson.Parse(payloadJSON).Array() {
		id := entry.Get("id").String()
		if id == "" {
			return fmt.Errorf("ingest entry missing id")
		}
		m.activities[id] = time.Now()
	}
	return nil
}

func (m *MemoryBridge) HasActivity(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.activities[id]
	return ok, nil
}

func (m *MemoryBridge) StartSectionDetection(ctx context.Context) error {
	m.mu.Lock()
	if m.status == "running" {
		m.mu.Unlock()
		return fmt.Errorf("detection already running")
	}
	m.status = "running"
	m.phase = "loading"
	m.completed, m.total = 0, 0
	m.mu.Unlock()

	go m.runJob()
	return nil
}

// runJob walks the phase sequence on a timer, mimicking the engine's
// background computation.
func (m *MemoryBridge) runJob() {
	phases := []struct {
		name  string
		steps int
	}{
		{"loading", 2},
		{"building_index", 4},
		{"finding_overlaps", 8},
		{"clustering", 4},
		{"building_groups", 3},
		{"postprocessing", 2},
	}

	for _, p := range phases {
		for step := 0; step <= p.steps; step++ {
			m.mu.Lock()
			if m.status != "running" {
				m.mu.Unlock()
				return // cancelled via ResetAll
			}
			m.phase = p.name
			m.completed, m.total = step, p.steps
			m.mu.Unlock()
			time.Sleep(m.StepDelay)
		}
	}

	m.mu.Lock()
	m.status = "complete"
	m.phase = "complete"
	m.mu.Unlock()
}

func (m *MemoryBridge) SectionDetectionStatus(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

func (m *MemoryBridge) SectionDetectionProgress(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != "running" {
		return "{}", nil
	}
	return fmt.Sprintf(`{"phase":%q,"completed":%d,"total":%d}`, m.phase, m.completed, m.total), nil
}

func (m *MemoryBridge) CleanupOldActivities(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, at := range m.activities {
		if at.Before(cutoff) {
			delete(m.activities, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryBridge) ResetAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = make(map[string]time.Time)
	m.status = "idle"
	return nil
}

func (m *MemoryBridge) Ping(ctx context.Context) error {
	return nil
}
