package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"llmgate/internal/config"
)

// serveFlags holds serve flag values. Only flags set on the command line
// override the file and environment.
type serveFlags struct {
	configPath  string
	v           config.Config
	corsOrigins string
}

func (f *serveFlags) register(fs *pflag.FlagSet) {
	d := config.Default()
	f.v.MaxWait, f.v.DrainTimeout = d.MaxWait, d.DrainTimeout
	fs.StringVar(&f.configPath, "config", "", "Config file (.yaml, .json or .toml); defaults to LLMGATE_CONFIG")
	fs.StringVar(&f.v.Addr, "addr", d.Addr, "HTTP listen address")
	fs.StringVar(&f.v.ModelPath, "model-path", "", "GGUF model file (MODEL_PATH)")
	fs.StringVar(&f.v.ModelID, "model-id", "", "Model identifier reported by /health (MODEL_ID); defaults to the file name")
	fs.IntVar(&f.v.CtxSize, "ctx-size", d.CtxSize, "Context size in tokens (N_CTX)")
	fs.IntVar(&f.v.GPULayers, "gpu-layers", d.GPULayers, "Layers offloaded to the GPU (N_GPU_LAYERS)")
	fs.IntVar(&f.v.Threads, "threads", 0, "CPU threads (0 = engine default)")
	fs.StringVar(&f.v.Engine, "engine", d.Engine, "Engine backend: llama|server")
	fs.StringVar(&f.v.Server.URL, "server-url", "", "Attach to a running llama-server instead of spawning one")
	fs.StringVar(&f.v.Server.Bin, "server-bin", d.Server.Bin, "llama-server binary spawned by the server engine")
	fs.StringVar(&f.v.Admission, "admission", d.Admission, "Admission policy: queue|reject|concurrent")
	fs.IntVar(&f.v.MaxQueueDepth, "max-queue-depth", d.MaxQueueDepth, "Maximum queued (or concurrent) generations")
	fs.Var(&f.v.MaxWait, "max-wait", "Maximum time a request waits for the engine")
	fs.Var(&f.v.DrainTimeout, "drain-timeout", "Time shutdown waits for running generations")
	fs.Var(&f.v.RequestTimeout, "request-timeout", "Per-request timeout, streaming included (0 = none)")
	fs.Int64Var(&f.v.MaxBodyBytes, "max-body-bytes", d.MaxBodyBytes, "Maximum request body size")
	fs.IntVar(&f.v.MaxTokens, "max-tokens", d.MaxTokens, "Default max_tokens when a request omits it")
	fs.BoolVar(&f.v.ErrorLine, "error-line", d.ErrorLine, "Write an {\"error\":...} line when generation fails mid-stream")
	fs.StringVar(&f.v.LogLevel, "log-level", d.LogLevel, "Log level: debug|info|warn|error (LLMGATE_LOG_LEVEL)")
	fs.StringVar(&f.v.LogFormat, "log-format", d.LogFormat, "Log format: json|console")
	fs.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated CORS origins; empty disables CORS")
}

// resolve builds the effective configuration: defaults, then the config
// file, then the environment, then explicitly set flags.
func (f *serveFlags) resolve(fs *pflag.FlagSet, lookup func(string) (string, bool)) (config.Config, error) {
	cfg := config.Default()
	path := f.configPath
	if path == "" {
		if v, ok := lookup("LLMGATE_CONFIG"); ok {
			path = strings.TrimSpace(v)
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	set := map[string]func(){
		"addr":            func() { cfg.Addr = f.v.Addr },
		"model-path":      func() { cfg.ModelPath = f.v.ModelPath },
		"model-id":        func() { cfg.ModelID = f.v.ModelID },
		"ctx-size":        func() { cfg.CtxSize = f.v.CtxSize },
		"gpu-layers":      func() { cfg.GPULayers = f.v.GPULayers },
		"threads":         func() { cfg.Threads = f.v.Threads },
		"engine":          func() { cfg.Engine = f.v.Engine },
		"server-url":      func() { cfg.Server.URL = f.v.Server.URL },
		"server-bin":      func() { cfg.Server.Bin = f.v.Server.Bin },
		"admission":       func() { cfg.Admission = f.v.Admission },
		"max-queue-depth": func() { cfg.MaxQueueDepth = f.v.MaxQueueDepth },
		"max-wait":        func() { cfg.MaxWait = f.v.MaxWait },
		"drain-timeout":   func() { cfg.DrainTimeout = f.v.DrainTimeout },
		"request-timeout": func() { cfg.RequestTimeout = f.v.RequestTimeout },
		"max-body-bytes":  func() { cfg.MaxBodyBytes = f.v.MaxBodyBytes },
		"max-tokens":      func() { cfg.MaxTokens = f.v.MaxTokens },
		"error-line":      func() { cfg.ErrorLine = f.v.ErrorLine },
		"log-level":       func() { cfg.LogLevel = f.v.LogLevel },
		"log-format":      func() { cfg.LogFormat = f.v.LogFormat },
		"cors-origins":    func() { cfg.CORSOrigins = splitCSV(f.corsOrigins) },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if apply, ok := set[fl.Name]; ok {
			apply()
		}
	})
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
