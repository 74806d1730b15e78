package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"llmgate/internal/llm"
	"llmgate/pkg/types"
)

// Manager holds the process-wide engine handle.
type Manager struct {
	// mu serialises lifecycle transitions (Initialize, Shutdown). The
	// request path never takes it.
	mu    sync.Mutex
	state atomic.Value // State

	model    types.ModelInfo
	loadOpts llm.LoadOptions
	loader   llm.Loader
	skipPath bool
	// engine is written once under mu before state becomes ready and is
	// never replaced.
	engine  llm.Engine
	lastErr atomic.Value // string

	// Admission primitives
	admission     AdmissionPolicy
	genCh         chan struct{} // in-flight generation slots
	queueCh       chan struct{} // waiting slots (queue policy only)
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time

	loadsTotal       atomic.Uint64
	generationsTotal atomic.Uint64
	rejectedTotal    atomic.Uint64
}

// New constructs a Manager for a single model file with package defaults.
func New(modelPath string, contextSize, gpuLayers int) *Manager {
	return NewWithConfig(ManagerConfig{
		Load: llm.LoadOptions{ModelPath: modelPath, ContextSize: contextSize, GPULayers: gpuLayers},
	})
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return m.state.Load().(State) }

// Ready reports whether the engine is loaded and accepting work.
func (m *Manager) Ready() bool { return m.State() == StateReady }

// Model returns the identity of the served model.
func (m *Manager) Model() types.ModelInfo { return m.model }

// ModelID returns the configured model identifier.
func (m *Manager) ModelID() string { return m.model.ID }

// Admission returns the configured admission policy.
func (m *Manager) Admission() AdmissionPolicy { return m.admission }

// SetEventPublisher replaces the event sink. Call before Initialize.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

func (m *Manager) setLastError(err error) {
	if err == nil {
		m.lastErr.Store("")
		return
	}
	m.lastErr.Store(err.Error())
}

func (m *Manager) lastError() string {
	s, _ := m.lastErr.Load().(string)
	return s
}
