package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"llmgate/internal/config"
	"llmgate/internal/httpapi"
	"llmgate/internal/llm"
	"llmgate/internal/manager"
	"llmgate/internal/registry"
	"llmgate/internal/session"
	"llmgate/pkg/types"
)

// newLogger builds the process logger and routes the standard logger through it.
func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := w
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "llmgate").Logger()
	log.SetFlags(0)
	log.SetOutput(l)
	return l
}

// requestLogLevel maps the process log level onto the HTTP layer's
// per-request levels.
func requestLogLevel(level string) string {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return "info"
	}
	switch {
	case lvl == zerolog.Disabled:
		return "off"
	case lvl <= zerolog.DebugLevel:
		return "debug"
	case lvl == zerolog.InfoLevel:
		return "info"
	default:
		return "error"
	}
}

// newLoader selects the engine backend.
func newLoader(cfg config.Config, l zerolog.Logger) llm.Loader {
	if cfg.Engine == config.EngineServer {
		sl := l.With().Str("component", "llama-server").Logger()
		return llm.NewServerLoader(llm.ServerOptions{
			BaseURL:      cfg.Server.URL,
			APIKey:       cfg.Server.APIKey,
			Bin:          cfg.Server.Bin,
			PortStart:    cfg.Server.PortStart,
			PortEnd:      cfg.Server.PortEnd,
			ExtraArgs:    cfg.Server.Args,
			ReadyTimeout: cfg.Server.ReadyTimeout.D(),
			Logger:       &sl,
		})
	}
	if !llm.LlamaBuilt() {
		l.Warn().Msg("built without -tags=llama; the in-process engine cannot load models")
	}
	return llm.NewLlamaLoader()
}

// newManager wires the engine manager for cfg.
func newManager(cfg config.Config, loader llm.Loader, l zerolog.Logger) *manager.Manager {
	model, err := registry.Describe(cfg.ModelPath, cfg.ModelID)
	if err != nil {
		// Initialize reports the load error; keep the configured identity.
		model = types.ModelInfo{ID: cfg.ModelID, Path: cfg.ModelPath}
	}
	ml := l.With().Str("component", "manager").Logger()
	return manager.NewWithConfig(manager.ManagerConfig{
		Model: model,
		Load: llm.LoadOptions{
			ModelPath:   cfg.ModelPath,
			ContextSize: cfg.CtxSize,
			GPULayers:   cfg.GPULayers,
			Threads:     cfg.Threads,
		},
		Loader:        loader,
		SkipPathCheck: cfg.Engine == config.EngineServer && cfg.Server.URL != "",
		Admission:     manager.AdmissionPolicy(cfg.Admission),
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait.D(),
		DrainTimeout:  cfg.DrainTimeout.D(),
		Publisher:     manager.NewLogPublisher(ml),
		Logger:        &ml,
	})
}

// newHandler wires the stream controller and HTTP layer around mgr.
func newHandler(cfg config.Config, mgr *manager.Manager, l zerolog.Logger) http.Handler {
	sl := l.With().Str("component", "session").Logger()
	ctrl := session.New(mgr, session.Config{
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
		ErrorLine:   cfg.ErrorLine,
		Logger:      &sl,
	})
	httpapi.SetLogger(l.With().Str("component", "http").Logger())
	httpapi.SetRequestLogLevel(requestLogLevel(cfg.LogLevel))
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetRequestTimeout(cfg.RequestTimeout.D())
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
	return httpapi.NewMux(httpapi.NewService(mgr, ctrl))
}

// runServe listens, loads the engine in the background and serves until a
// signal arrives or the load fails. A load failure is returned so the
// process exits non-zero.
func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg, os.Stderr)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := newManager(cfg, newLoader(cfg, logger), logger)
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return serveOn(ctx, ln, cfg, mgr, logger)
}

// serveOn runs the server on ln until ctx ends or the engine fails to load.
func serveOn(ctx context.Context, ln net.Listener, cfg config.Config, mgr *manager.Manager, l zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	httpapi.SetBaseContext(gctx)
	srv := &http.Server{
		Handler:           newHandler(cfg, mgr, l),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		l.Info().Str("addr", ln.Addr().String()).Str("model", mgr.ModelID()).Str("engine", cfg.Engine).Msg("llmgate listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := mgr.Initialize(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout.D()+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Warn().Err(err).Msg("http shutdown")
		}
		return mgr.Shutdown(sctx)
	})
	return g.Wait()
}
