// Package config holds the runtime parameters of llmgate and their sources:
// built-in defaults, an optional config file, and the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"llmgate/internal/common/fsutil"
	"llmgate/internal/manager"
)

// Engine backends.
const (
	EngineLlama  = "llama"
	EngineServer = "server"
)

// Config holds runtime parameters for the service.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelID   string `json:"model_id" yaml:"model_id" toml:"model_id"`
	CtxSize   int    `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	GPULayers int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Threads   int    `json:"threads" yaml:"threads" toml:"threads"`

	// Engine selects the backend: llama (in-process) or server (llama-server).
	Engine string       `json:"engine" yaml:"engine" toml:"engine"`
	Server ServerConfig `json:"server" yaml:"server" toml:"server"`

	Admission      string   `json:"admission" yaml:"admission" toml:"admission"`
	MaxQueueDepth  int      `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWait        Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	DrainTimeout   Duration `json:"drain_timeout" yaml:"drain_timeout" toml:"drain_timeout"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	MaxBodyBytes   int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP        float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	// ErrorLine enables the {"error":...} line after a mid-stream failure.
	ErrorLine bool `json:"error_line" yaml:"error_line" toml:"error_line"`

	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat   string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// ServerConfig configures the llama-server backend.
type ServerConfig struct {
	// URL of a running server to attach to. When empty Bin is spawned.
	URL          string   `json:"url" yaml:"url" toml:"url"`
	APIKey       string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	Bin          string   `json:"bin" yaml:"bin" toml:"bin"`
	PortStart    int      `json:"port_start" yaml:"port_start" toml:"port_start"`
	PortEnd      int      `json:"port_end" yaml:"port_end" toml:"port_end"`
	Args         []string `json:"args" yaml:"args" toml:"args"`
	ReadyTimeout Duration `json:"ready_timeout" yaml:"ready_timeout" toml:"ready_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:          ":8000",
		CtxSize:       4096,
		Engine:        EngineLlama,
		Server:        ServerConfig{Bin: "llama-server", ReadyTimeout: Duration(30 * time.Second)},
		Admission:     string(manager.AdmissionQueue),
		MaxQueueDepth: 32,
		MaxWait:       Duration(30 * time.Second),
		DrainTimeout:  Duration(10 * time.Second),
		MaxBodyBytes:  1 << 20,
		Temperature:   0.2,
		TopP:          0.9,
		MaxTokens:     256,
		ErrorLine:     true,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv. Recognised: MODEL_PATH, MODEL_ID, N_CTX, N_GPU_LAYERS,
// N_THREADS, LLMGATE_ADDR, LLMGATE_LOG_LEVEL, LLMGATE_ENGINE and
// LLAMA_SERVER_URL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	str("MODEL_PATH", &c.ModelPath)
	str("MODEL_ID", &c.ModelID)
	str("LLMGATE_ADDR", &c.Addr)
	str("LLMGATE_LOG_LEVEL", &c.LogLevel)
	str("LLMGATE_ENGINE", &c.Engine)
	str("LLAMA_SERVER_URL", &c.Server.URL)
	if err := num("N_CTX", &c.CtxSize); err != nil {
		return err
	}
	if err := num("N_GPU_LAYERS", &c.GPULayers); err != nil {
		return err
	}
	return num("N_THREADS", &c.Threads)
}

// ExpandPaths resolves a leading '~' in file paths.
func (c *Config) ExpandPaths() error {
	p, err := fsutil.ExpandHome(c.ModelPath)
	if err != nil {
		return err
	}
	c.ModelPath = p
	if c.Server.Bin, err = fsutil.ExpandHome(c.Server.Bin); err != nil {
		return err
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("model_path is required (MODEL_PATH)")
	}
	if c.CtxSize <= 0 {
		return fmt.Errorf("ctx_size must be positive, got %d", c.CtxSize)
	}
	if c.GPULayers < 0 || c.Threads < 0 {
		return fmt.Errorf("gpu_layers and threads must not be negative")
	}
	switch c.Engine {
	case EngineLlama:
	case EngineServer:
		if c.Server.URL == "" && c.Server.Bin == "" {
			return fmt.Errorf("engine server needs server.url or server.bin")
		}
		if c.Server.PortStart > 0 && c.Server.PortEnd < c.Server.PortStart {
			return fmt.Errorf("server.port_end must be >= server.port_start")
		}
	default:
		return fmt.Errorf("unknown engine %q (want llama|server)", c.Engine)
	}
	if _, err := manager.ParseAdmission(c.Admission); err != nil {
		return err
	}
	if c.MaxQueueDepth < 0 || c.MaxWait < 0 || c.DrainTimeout < 0 || c.RequestTimeout < 0 {
		return fmt.Errorf("queue depth and timeouts must not be negative")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("temperature must be >= 0 and top_p within [0,1]")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log_format %q (want json|console)", c.LogFormat)
	}
	return nil
}

// Duration is a time.Duration that reads and writes as a string such as "30s".
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// String implements pflag.Value so durations can be bound to flags.
func (d *Duration) String() string { return time.Duration(*d).String() }

// Set implements pflag.Value.
func (d *Duration) Set(s string) error { return d.UnmarshalText([]byte(s)) }

// Type implements pflag.Value.
func (d *Duration) Type() string { return "duration" }
