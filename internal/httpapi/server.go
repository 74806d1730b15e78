package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmgate/internal/manager"
	"llmgate/pkg/types"
)

// NewMux builds the HTTP router for svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", healthHandler(svc))
	r.Post("/chat_stream", chatStreamHandler(svc))

	// JSON endpoints; compression would buffer the stream route.
	r.Group(func(g chi.Router) {
		g.Use(middleware.Compress(5))
		g.Get("/status", statusHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func corsOptions() cors.Options {
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Log-Level", "X-Request-Id"}
	}
	return cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}

// healthHandler godoc
// @Summary      Engine readiness
// @Description  Always 200; ok reports whether the model is loaded.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Health())
	}
}

// statusHandler godoc
// @Summary      Engine and admission status
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func statusHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(b, '\n'))
}

// chatStreamHandler godoc
// @Summary      Stream a chat completion
// @Description  Streams NDJSON lines: {"delta":...} per fragment, then {"done":true}.
// @Description  A stream that ends without done is incomplete.
// @Tags         chat
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request  body      types.ChatStreamRequest  true  "Conversation and sampling parameters"
// @Success      200      {object}  types.DeltaLine
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /chat_stream [post]
func chatStreamHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := newRequestLogger(r)
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		req, err := decodeChatRequest(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		nw := &ndjsonWriter{w: w}
		out := io.Writer(nw)
		if rl.lvl >= LevelDebug {
			out = io.MultiWriter(nw, &loggingLineWriter{reqID: rl.reqID})
		}
		rl.logf(LevelInfo, "chat_stream start", nil, "messages", len(req.Messages))
		start := time.Now()

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if requestTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, requestTimeout)
			defer tcancel()
		}

		err = svc.ChatStream(ctx, req, out, nw.flush)
		switch {
		case err == nil:
			rl.logf(LevelInfo, "chat_stream end", nil, "status", http.StatusOK, "dur", time.Since(start).String())
		case nw.wrote:
			// the status line is gone; the stream simply ends without done
			rl.logf(LevelError, "chat_stream aborted", err, "dur", time.Since(start).String())
		case r.Context().Err() != nil:
			// client went away
			rl.logf(LevelInfo, "chat_stream canceled", err)
		case serverBaseCtx.Err() != nil:
			writeJSONError(w, http.StatusServiceUnavailable, "server shutting down")
		default:
			status := statusFor(err)
			if manager.IsTooBusy(err) {
				IncrementBackpressure("engine_busy")
			}
			writeJSONError(w, status, err.Error())
			lvl := LevelInfo
			if status >= http.StatusInternalServerError {
				lvl = LevelError
			}
			rl.logf(lvl, "chat_stream end", err, "status", status, "dur", time.Since(start).String())
		}
	}
}

var errMessagesRequired = errors.New("messages is required and must be an array of {role, content} objects")

// decodeChatRequest parses and shape-checks a /chat_stream body.
func decodeChatRequest(body io.Reader) (types.ChatStreamRequest, error) {
	var req types.ChatStreamRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		var ute *json.UnmarshalTypeError
		switch {
		case errors.As(err, &mbe):
			return req, errors.New("request body too large")
		case errors.As(err, &ute) && strings.HasPrefix(ute.Field, "messages"):
			return req, errMessagesRequired
		}
		return req, errors.New("invalid JSON body")
	}
	if dec.More() {
		return req, errors.New("invalid JSON body: trailing data")
	}
	if req.Messages == nil {
		return req, errMessagesRequired
	}
	return req, nil
}
