package manager

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"llmgate/internal/llm"
	"llmgate/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 10 * time.Second
)

// AdmissionPolicy declares how concurrent submissions share the engine.
type AdmissionPolicy string

const (
	// AdmissionQueue runs one generation at a time and lets up to
	// MaxQueueDepth requests wait up to MaxWait for the slot.
	AdmissionQueue AdmissionPolicy = "queue"
	// AdmissionReject runs one generation at a time and rejects any
	// submission that would have to wait.
	AdmissionReject AdmissionPolicy = "reject"
	// AdmissionConcurrent passes submissions through to an engine that
	// supports parallel sessions, up to MaxQueueDepth at once.
	AdmissionConcurrent AdmissionPolicy = "concurrent"
)

// ParseAdmission parses an admission policy name. Empty means AdmissionQueue.
func ParseAdmission(s string) (AdmissionPolicy, error) {
	switch p := AdmissionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return AdmissionQueue, nil
	case AdmissionQueue, AdmissionReject, AdmissionConcurrent:
		return p, nil
	default:
		return "", fmt.Errorf("unknown admission policy %q (want queue|reject|concurrent)", s)
	}
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Model identifies the served model; ID defaults to the base name of Load.ModelPath.
	Model types.ModelInfo
	// Load is passed to Loader by Initialize.
	Load   llm.LoadOptions
	Loader llm.Loader
	// SkipPathCheck disables the local readability check of Load.ModelPath,
	// for engines that read the model elsewhere (an attached llama-server).
	SkipPathCheck bool

	Admission     AdmissionPolicy
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration

	Publisher EventPublisher
	Logger    *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		model:     cfg.Model,
		loadOpts:  cfg.Load,
		loader:    cfg.Loader,
		skipPath:  cfg.SkipPathCheck,
		admission: cfg.Admission,
		publisher: cfg.Publisher,
		startTime: time.Now(),
	}
	if m.model.Path == "" {
		m.model.Path = cfg.Load.ModelPath
	}
	if m.model.ID == "" && m.model.Path != "" {
		m.model.ID = filepath.Base(m.model.Path)
	}
	if m.loader == nil {
		m.loader = llm.NewLlamaLoader()
	}
	if m.admission == "" {
		m.admission = AdmissionQueue
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	switch m.admission {
	case AdmissionConcurrent:
		m.genCh = make(chan struct{}, m.maxQueueDepth)
	default:
		m.genCh = make(chan struct{}, 1)
	}
	if m.admission == AdmissionQueue {
		m.queueCh = make(chan struct{}, m.maxQueueDepth)
	}
	m.state.Store(StateUninitialized)
	return m
}
