// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/flux-cli/api/schemas"
	"github.com/xkilldash9x/flux-cli/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Simulation() config.SimulationConfig {
	args := m.Called()
	return args.Get(0).(config.SimulationConfig)
}

func (m *MockConfig) Viewport() config.ViewportConfig {
	args := m.Called()
	return args.Get(0).(config.ViewportConfig)
}

func (m *MockConfig) Source() config.SourceConfig {
	args := m.Called()
	return args.Get(0).(config.SourceConfig)
}

func (m *MockConfig) Driver() config.DriverConfig {
	args := m.Called()
	return args.Get(0).(config.DriverConfig)
}

func (m *MockConfig) Critic() config.CriticConfig {
	args := m.Called()
	return args.Get(0).(config.CriticConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) Record() config.RecordConfig {
	args := m.Called()
	return args.Get(0).(config.RecordConfig)
}

func (m *MockConfig) Network() config.NetworkConfig {
	args := m.Called()
	return args.Get(0).(config.NetworkConfig)
}

// --- Setters ---

func (m *MockConfig) SetSimulation(s config.SimulationConfig) {
	m.Called(s)
}

func (m *MockConfig) SetSourceImage(src string) {
	m.Called(src)
}

func (m *MockConfig) SetViewport(width, height int) {
	m.Called(width, height)
}

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Critique Store Mock --

// MockCritiqueStore mocks schemas.CritiqueStore and keeps every saved record
// so tests can inspect them without argument matchers.
type MockCritiqueStore struct {
	mock.Mock
	mu    sync.Mutex
	saved []schemas.CritiqueRecord
}

func (m *MockCritiqueStore) SaveCritique(ctx context.Context, rec schemas.CritiqueRecord) error {
	m.mu.Lock()
	m.saved = append(m.saved, rec)
	m.mu.Unlock()
	return m.Called(ctx, rec).Error(0)
}

func (m *MockCritiqueStore) RecentCritiques(ctx context.Context, limit int) ([]schemas.CritiqueRecord, error) {
	args := m.Called(ctx, limit)
	var recs []schemas.CritiqueRecord
	if v := args.Get(0); v != nil {
		recs = v.([]schemas.CritiqueRecord)
	}
	return recs, args.Error(1)
}

// Saved returns a copy of the records passed to SaveCritique.
func (m *MockCritiqueStore) Saved() []schemas.CritiqueRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]schemas.CritiqueRecord(nil), m.saved...)
}
