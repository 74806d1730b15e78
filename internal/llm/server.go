package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServerOptions configures the llama-server backend. With BaseURL set the
// loader attaches to an already running server; otherwise it spawns Bin for
// the model file and owns the process.
type ServerOptions struct {
	BaseURL      string
	APIKey       string
	Bin          string
	Host         string
	PortStart    int
	PortEnd      int
	ExtraArgs    []string
	ReadyTimeout time.Duration
	Logger       *zerolog.Logger
}

const defaultServerReadyTimeout = 30 * time.Second

type serverLoader struct {
	opts ServerOptions
	log  zerolog.Logger
}

// NewServerLoader returns a Loader backed by llama.cpp's OpenAI-compatible
// HTTP server.
func NewServerLoader(opts ServerOptions) Loader {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultServerReadyTimeout
	}
	l := zerolog.Nop()
	if opts.Logger != nil {
		l = *opts.Logger
	}
	return &serverLoader{opts: opts, log: l}
}

func newServerHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    16,
		IdleConnTimeout: 90 * time.Second,
	}
	// Timeout=0: every request carries its own context deadline.
	return &http.Client{Transport: tr, Timeout: 0}
}

func (l *serverLoader) Load(ctx context.Context, opts LoadOptions) (Engine, error) {
	e := &serverEngine{
		apiKey: l.opts.APIKey,
		client: newServerHTTPClient(),
		log:    l.log,
	}
	if base := strings.TrimRight(strings.TrimSpace(l.opts.BaseURL), "/"); base != "" {
		e.baseURL = base
		if err := e.waitReady(ctx, nil, l.opts.ReadyTimeout); err != nil {
			return nil, err
		}
		return e, nil
	}
	if strings.TrimSpace(l.opts.Bin) == "" {
		return nil, ErrDependencyUnavailable("llama-server binary not configured")
	}
	if err := e.spawn(ctx, l.opts, opts); err != nil {
		return nil, err
	}
	return e, nil
}

// serverEngine talks to one llama-server instance.
type serverEngine struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
	proc    *serverProc // nil when attached to an external server
}

// completionRequest is the payload for /v1/completions.
type completionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature"`
	TopP        float32  `json:"top_p"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// Not standard OpenAI; llama.cpp accepts it and other servers ignore it.
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
}

// completionChunk is the subset of a streamed completion we read. llama.cpp
// puts the text in choices[].text; chat-style servers use choices[].delta.content.
type completionChunk struct {
	Choices []struct {
		Text  string `json:"text"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Content string `json:"content"` // native /completion stream
	// Set instead of choices when generation fails after the stream began.
	Error json.RawMessage `json:"error"`
}

// errorText renders the error event payload, which is either an object with
// a message or a bare string.
func (c completionChunk) errorText() string {
	var obj struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(c.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var str string
	if err := json.Unmarshal(c.Error, &str); err == nil && str != "" {
		return str
	}
	return string(c.Error)
}

func (c completionChunk) text() string {
	if len(c.Choices) > 0 {
		if c.Choices[0].Text != "" {
			return c.Choices[0].Text
		}
		return c.Choices[0].Delta.Content
	}
	return c.Content
}

func (e *serverEngine) Submit(ctx context.Context, prompt string, p Params) (Stream, error) {
	payload := completionRequest{
		Prompt:        prompt,
		MaxTokens:     p.MaxTokens,
		Temperature:   p.Temperature,
		TopP:          p.TopP,
		TopK:          p.TopK,
		Stop:          p.Stop,
		Seed:          p.Seed,
		Stream:        true,
		RepeatPenalty: p.RepeatPenalty,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Internal(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Internal(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		msg := fmt.Sprintf("llama-server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			return nil, ErrBusy(msg)
		}
		return nil, Internal(errors.New(msg))
	}
	return NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		defer resp.Body.Close()
		// Unblocks a pending body read when the stream is closed.
		stop := context.AfterFunc(ctx, func() { _ = resp.Body.Close() })
		defer stop()
		return e.readEvents(ctx, resp.Body, emit)
	}), nil
}

// readEvents parses a server-sent event stream and emits each text delta.
// Only [DONE] ends the stream cleanly; an error event or a body that ends
// before it is an engine-internal failure.
func (e *serverEngine) readEvents(ctx context.Context, body io.Reader, emit func(string) bool) error {
	r := bufio.NewReader(body)
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				return nil
			}
			var chunk completionChunk
			if jerr := json.Unmarshal([]byte(data), &chunk); jerr != nil {
				e.log.Debug().Str("line", l).Msg("llama-server unknown stream line")
			} else if len(chunk.Error) > 0 && string(chunk.Error) != "null" {
				return Internal(fmt.Errorf("llama-server stream error: %s", chunk.errorText()))
			} else if tok := chunk.text(); tok != "" {
				if !emit(tok) {
					return ctx.Err()
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return Internal(fmt.Errorf("stream ended before [DONE]: %w", io.ErrUnexpectedEOF))
			}
			return Internal(fmt.Errorf("read stream: %w", err))
		}
	}
}

// waitReady polls /health (falling back to /v1/models) until the server
// answers 2xx, the spawned process exits, or timeout elapses.
func (e *serverEngine) waitReady(ctx context.Context, proc *serverProc, timeout time.Duration) error {
	var exited <-chan struct{}
	if proc != nil {
		exited = proc.done
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if e.healthy(ctx) {
			return nil
		}
		select {
		case <-exited:
			err := proc.err
			if err == nil {
				err = errors.New("exited before ready")
			}
			return fmt.Errorf("llama-server exited early: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("llama-server not ready in time: %s", e.baseURL)
		case <-tick.C:
		}
	}
}

func (e *serverEngine) healthy(ctx context.Context) bool {
	for _, path := range []string{"/health", "/v1/models"} {
		hctx, cancel := context.WithTimeout(ctx, time.Second)
		req, err := http.NewRequestWithContext(hctx, http.MethodGet, e.baseURL+path, nil)
		if err != nil {
			cancel()
			return false
		}
		resp, err := e.client.Do(req)
		cancel()
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true
		}
	}
	return false
}

func (e *serverEngine) Close() error {
	e.client.CloseIdleConnections()
	if e.proc != nil {
		return e.proc.stop(e.log)
	}
	return nil
}

// serverProc is a spawned llama-server. err is set before done is closed.
type serverProc struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}
