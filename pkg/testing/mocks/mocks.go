package mocks

import (
	"context"
	"fmt"
	"sync"

	shared "github.com/tracematch/sync-engine/pkg"
)

// --- Mock Engine ---

type MockEngine struct {
	IngestFunc          func(ctx context.Context, ids []string, points [][]shared.Point, sportTypes []string) error
	ItemExistsFunc      func(ctx context.Context, id string) (bool, error)
	StartJobFunc        func(ctx context.Context) error
	PollJobFunc         func(ctx context.Context) (shared.AnalysisJobStatus, error)
	JobProgressFunc     func(ctx context.Context) (*shared.JobProgress, error)
	DeleteOlderThanFunc func(ctx context.Context, days int) (int, error)
	ClearFunc           func(ctx context.Context) error
	AvailableFunc       func(ctx context.Context) error

	mu       sync.Mutex
	ingested map[string][]shared.Point
}

func (m *MockEngine) Ingest(ctx context.Context, ids []string, points [][]shared.Point, sportTypes []string) error {
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, ids, points, sportTypes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ingested == nil {
		m.ingested = make(map[string][]shared.Point)
	}
	for i, id := range ids {
		m.ingested[id] = points[i]
	}
	return nil
}

func (m *MockEngine) ItemExists(ctx context.Context, id string) (bool, error) {
	if m.ItemExistsFunc != nil {
		return m.ItemExistsFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ingested[id]
	return ok, nil
}

func (m *MockEngine) StartJob(ctx context.Context) error {
	if m.StartJobFunc != nil {
		return m.StartJobFunc(ctx)
	}
	return nil
}

func (m *MockEngine) PollJob(ctx context.Context) (shared.AnalysisJobStatus, error) {
	if m.PollJobFunc != nil {
		return m.PollJobFunc(ctx)
	}
	return shared.JobComplete, nil
}

func (m *MockEngine) JobProgress(ctx context.Context) (*shared.JobProgress, error) {
	if m.JobProgressFunc != nil {
		return m.JobProgressFunc(ctx)
	}
	return nil, nil
}

func (m *MockEngine) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, days)
	}
	return 0, nil
}

func (m *MockEngine) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = nil
	return nil
}

func (m *MockEngine) Available(ctx context.Context) error {
	if m.AvailableFunc != nil {
		return m.AvailableFunc(ctx)
	}
	return nil
}

// IngestedIDs returns the ids stored by the default Ingest implementation.
func (m *MockEngine) IngestedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.ingested))
	for id := range m.ingested {
		ids = append(ids, id)
	}
	return ids
}

// --- Mock Telemetry Source ---

type MockTelemetrySource struct {
	FetchTelemetryFunc func(ctx context.Context, credential string, id string) (*shared.TelemetryPayload, error)
}

func (m *MockTelemetrySource) FetchTelemetry(ctx context.Context, credential string, id string) (*shared.TelemetryPayload, error) {
	if m.FetchTelemetryFunc != nil {
		return m.FetchTelemetryFunc(ctx, credential, id)
	}
	return &shared.TelemetryPayload{
		Points: []shared.Point{{Lat: 51.5, Lng: -0.1}, {Lat: 51.6, Lng: -0.2}},
	}, nil
}

// --- Mock Preference Store ---

type MockPreferenceStore struct {
	GetRetentionDaysFunc func(ctx context.Context) (int, bool, error)
}

func (m *MockPreferenceStore) GetRetentionDays(ctx context.Context) (int, bool, error) {
	if m.GetRetentionDaysFunc != nil {
		return m.GetRetentionDaysFunc(ctx)
	}
	return 0, false, nil
}

// --- Mock Credential Provider ---

type MockCredentialProvider struct {
	CredentialFunc func(ctx context.Context) (string, error)
}

func (m *MockCredentialProvider) Credential(ctx context.Context) (string, error) {
	if m.CredentialFunc != nil {
		return m.CredentialFunc(ctx)
	}
	return "mock-credential", nil
}

// --- Script Engine ---

// ScriptEngine replays a fixed sequence of (status, progress) poll results,
// for driving the analysis poller through a scenario. The final entry
// repeats once the script is exhausted.
type ScriptEngine struct {
	MockEngine

	mu     sync.Mutex
	step   int
	Script []ScriptStep
}

type ScriptStep struct {
	Status   shared.AnalysisJobStatus
	Progress *shared.JobProgress
}

func (s *ScriptEngine) PollJob(ctx context.Context) (shared.AnalysisJobStatus, error) {
	step, err := s.currentStep()
	if err != nil {
		return shared.JobIdle, err
	}
	return step.Status, nil
}

func (s *ScriptEngine) JobProgress(ctx context.Context) (*shared.JobProgress, error) {
	step, err := s.currentStep()
	if err != nil {
		return nil, err
	}
	// Advance only after both the status and the progress of the current
	// step have been observed, mirroring the poll loop's read order.
	s.mu.Lock()
	if s.step < len(s.Script)-1 {
		s.step++
	}
	s.mu.Unlock()
	return step.Progress, nil
}

func (s *ScriptEngine) currentStep() (ScriptStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Script) == 0 {
		return ScriptStep{}, fmt.Errorf("script engine has no steps")
	}
	return s.Script[s.step], nil
}
