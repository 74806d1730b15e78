package httpapi

import (
	"context"
	"io"

	"llmgate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Health() types.HealthResponse
	Status() types.StatusResponse
	Ready() bool
	ChatStream(ctx context.Context, req types.ChatStreamRequest, w io.Writer, flush func()) error
}

// Engine is the engine manager as seen by the HTTP layer.
type Engine interface {
	Ready() bool
	ModelID() string
	Status() types.StatusResponse
}

// Streamer runs one chat stream.
type Streamer interface {
	Stream(ctx context.Context, req types.ChatStreamRequest, w io.Writer, flush func()) error
}

type service struct {
	eng Engine
	st  Streamer
}

// NewService combines the engine manager and the stream controller into a Service.
func NewService(eng Engine, st Streamer) Service { return service{eng: eng, st: st} }

func (s service) Health() types.HealthResponse {
	return types.HealthResponse{OK: s.eng.Ready(), Model: s.eng.ModelID()}
}

func (s service) Status() types.StatusResponse { return s.eng.Status() }

func (s service) Ready() bool { return s.eng.Ready() }

func (s service) ChatStream(ctx context.Context, req types.ChatStreamRequest, w io.Writer, flush func()) error {
	return s.st.Stream(ctx, req, w, flush)
}
