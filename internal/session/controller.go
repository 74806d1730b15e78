// Package session turns a chat request into an NDJSON stream of engine
// fragments.
//
// Wire format, one JSON object per line:
//
//	{"delta":"<text>"}   one per fragment, flushed immediately
//	{"done":true}        only after the engine finished normally
//	{"error":"<msg>"}    optional, after a mid-stream engine failure
//
// A stream that ends without a done line is incomplete and clients must
// treat it as failed.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"llmgate/internal/llm"
	"llmgate/internal/manager"
	"llmgate/internal/prompt"
	"llmgate/pkg/types"
)

// Defaults for sampling parameters omitted from a request.
const (
	DefaultTemperature = 0.2
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 256
)

// Engine is the part of the engine manager the controller drives.
type Engine interface {
	Ready() bool
	ModelID() string
	Submit(ctx context.Context, prompt string, p llm.Params) (llm.Stream, error)
}

// Config tunes a Controller. Zero values select the package defaults.
type Config struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   int
	// ErrorLine writes {"error":...} before ending a stream that failed
	// mid-generation.
	ErrorLine bool
	Builder   prompt.Builder
	Logger    *zerolog.Logger
}

// Controller runs one streaming session per request against a shared engine.
type Controller struct {
	eng       Engine
	builder   prompt.Builder
	temp      float64
	topP      float64
	maxTokens int
	errorLine bool
	log       zerolog.Logger
}

// New returns a Controller for eng.
func New(eng Engine, cfg Config) *Controller {
	c := &Controller{
		eng:       eng,
		builder:   cfg.Builder,
		temp:      DefaultTemperature,
		topP:      DefaultTopP,
		maxTokens: DefaultMaxTokens,
		errorLine: cfg.ErrorLine,
		log:       zerolog.Nop(),
	}
	if c.builder == nil {
		c.builder = prompt.TaggedBuilder{}
	}
	if cfg.Temperature != nil {
		c.temp = *cfg.Temperature
	}
	if cfg.TopP != nil {
		c.topP = *cfg.TopP
	}
	if cfg.MaxTokens > 0 {
		c.maxTokens = cfg.MaxTokens
	}
	if cfg.Logger != nil {
		c.log = *cfg.Logger
	}
	return c
}

// Stream generates a completion for req and writes it to w as NDJSON,
// calling flush after every line. Nothing is written when an error is
// returned before the first fragment, except a possible error line.
//
// Errors: manager.ErrEngineNotLoaded, ValidationError, a busy error from
// admission, ctx.Err() on cancellation, an engine-internal error on
// mid-stream failure, or the writer's error.
func (c *Controller) Stream(ctx context.Context, req types.ChatStreamRequest, w io.Writer, flush func()) error {
	if !c.eng.Ready() {
		streamsTotal.WithLabelValues(outcomeNotLoaded).Inc()
		return manager.ErrEngineNotLoaded
	}
	params, err := c.params(req)
	if err != nil {
		streamsTotal.WithLabelValues(outcomeInvalid).Inc()
		return err
	}
	text := c.builder.Build(req.Messages)

	s := &streamSession{
		id:    uuid.NewString(),
		w:     w,
		flush: flush,
		start: time.Now(),
	}
	log := c.log.With().Str("session", s.id).Str("model", c.eng.ModelID()).Logger()
	if rid := middleware.GetReqID(ctx); rid != "" {
		log = log.With().Str("request_id", rid).Logger()
	}

	stream, err := c.eng.Submit(ctx, text, params)
	if err != nil {
		if llm.IsBusy(err) {
			streamsTotal.WithLabelValues(outcomeRejected).Inc()
		} else if ctx.Err() != nil {
			streamsTotal.WithLabelValues(outcomeCanceled).Inc()
		} else {
			streamsTotal.WithLabelValues(outcomeEngineError).Inc()
		}
		log.Debug().Err(err).Msg("stream not started")
		return err
	}
	// Closing stops the engine worker and returns the admission slot, on
	// every exit path including a vanished client.
	defer stream.Close()
	s.stream = stream

	activeStreams.Inc()
	defer activeStreams.Dec()
	log.Debug().Int("messages", len(req.Messages)).Int("max_tokens", params.MaxTokens).Msg("stream start")

	outcome, err := s.run(ctx, c.errorLine)
	streamsTotal.WithLabelValues(outcome).Inc()
	ev := log.Debug()
	if outcome == outcomeEngineError {
		ev = log.Error()
	}
	ev.Err(err).Str("outcome", outcome).Int("fragments", s.fragments).
		Dur("dur", time.Since(s.start)).Msg("stream end")
	return err
}

// params applies defaults to the request's sampling fields and validates them.
func (c *Controller) params(req types.ChatStreamRequest) (llm.Params, error) {
	temp, topP, maxTokens := c.temp, c.topP, c.maxTokens
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	if req.TopP != nil {
		topP = *req.TopP
	}
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	switch {
	case maxTokens <= 0:
		return llm.Params{}, ValidationError{Field: "max_tokens", Msg: "must be positive"}
	case temp < 0:
		return llm.Params{}, ValidationError{Field: "temperature", Msg: "must not be negative"}
	case topP < 0 || topP > 1:
		return llm.Params{}, ValidationError{Field: "top_p", Msg: "must be within [0,1]"}
	}
	p := llm.Params{
		Temperature: float32(temp),
		TopP:        float32(topP),
		MaxTokens:   maxTokens,
		Stop:        req.Stop,
	}
	if req.TopK != nil {
		if *req.TopK < 0 {
			return llm.Params{}, ValidationError{Field: "top_k", Msg: "must not be negative"}
		}
		p.TopK = *req.TopK
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if req.RepeatPenalty != nil {
		p.RepeatPenalty = float32(*req.RepeatPenalty)
	}
	return p, nil
}

// streamSession is the state of one response being streamed.
type streamSession struct {
	id        string
	stream    llm.Stream
	w         io.Writer
	flush     func()
	start     time.Time
	fragments int
}

// run copies fragments to the writer until the stream ends and reports the
// outcome label.
func (s *streamSession) run(ctx context.Context, errorLine bool) (string, error) {
	for {
		frag, err := s.stream.Next(ctx)
		if err == nil {
			if s.fragments == 0 {
				firstFragmentSeconds.Observe(time.Since(s.start).Seconds())
			}
			if werr := s.writeLine(types.DeltaLine{Delta: frag.Text}); werr != nil {
				return outcomeWriteError, werr
			}
			s.fragments++
			fragmentsTotal.Inc()
			continue
		}
		if errors.Is(err, io.EOF) {
			if werr := s.writeLine(types.DoneLine{Done: true}); werr != nil {
				return outcomeWriteError, werr
			}
			return outcomeDone, nil
		}
		if ctx.Err() != nil {
			return outcomeCanceled, ctx.Err()
		}
		if errorLine {
			_ = s.writeLine(types.StreamErrorLine{Error: err.Error()})
		}
		return outcomeEngineError, err
	}
}

// writeLine marshals v completely and writes it as a single line.
func (s *streamSession) writeLine(v any) error {
	b, err := marshalLine(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}
