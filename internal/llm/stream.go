package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Producer pushes generated text through emit until the generation is
// exhausted. emit returns false once the consumer has gone away; producers
// must stop generating when that happens.
type Producer func(ctx context.Context, emit func(text string) bool) error

// chanStream bridges a push-style Producer running in its own goroutine to
// the pull-style Stream interface. Fragments are handed over one at a time on
// an unbuffered channel, so the engine never runs ahead of the consumer.
type chanStream struct {
	frags  chan string
	done   chan struct{}
	err    error // written by the worker before done is closed
	cancel context.CancelFunc
	once   sync.Once
}

// NewStream starts produce in a worker goroutine and returns the Stream
// reading from it. Canceling ctx or closing the stream stops the worker.
func NewStream(ctx context.Context, produce Producer) Stream {
	wctx, cancel := context.WithCancel(ctx)
	s := &chanStream{
		frags:  make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.run(wctx, produce)
	return s
}

func (s *chanStream) run(ctx context.Context, produce Producer) {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.err = Internal(fmt.Errorf("panic in producer: %v", r))
		}
	}()
	emit := func(text string) bool {
		select {
		case s.frags <- text:
			return true
		case <-ctx.Done():
			return false
		}
	}
	err := produce(ctx, emit)
	if err == nil && ctx.Err() != nil {
		// A producer that honours emit()==false usually returns cleanly;
		// the stream still did not run to completion.
		err = ctx.Err()
	}
	s.err = err
}

func (s *chanStream) Next(ctx context.Context) (Fragment, error) {
	select {
	case text := <-s.frags:
		return Fragment{Text: text}, nil
	case <-s.done:
		return Fragment{}, s.result()
	case <-ctx.Done():
		return Fragment{}, ctx.Err()
	}
}

func (s *chanStream) result() error {
	switch {
	case s.err == nil:
		return io.EOF
	case errors.Is(s.err, context.Canceled), errors.Is(s.err, context.DeadlineExceeded):
		return s.err
	default:
		return Internal(s.err)
	}
}

func (s *chanStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
