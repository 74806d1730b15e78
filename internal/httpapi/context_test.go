package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	for _, cancelBase := range []bool{true, false} {
		base, bc := context.WithCancel(context.Background())
		req, rc := context.WithCancel(context.Background())
		j, cancelJ := joinContexts(base, req)
		if cancelBase {
			bc()
		} else {
			rc()
		}
		select {
		case <-j.Done():
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("joined context not canceled (cancelBase=%v)", cancelBase)
		}
		cancelJ()
		bc()
		rc()
	}
}

func TestJoinContexts_KeepsRequestValues(t *testing.T) {
	req := context.WithValue(context.Background(), middleware.RequestIDKey, "rid-1")
	j, cancel := joinContexts(context.Background(), req)
	defer cancel()
	if got := middleware.GetReqID(j); got != "rid-1" {
		t.Fatalf("request id lost: %q", got)
	}
}

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	cancel()
	SetBaseContext(nil) //nolint:staticcheck // nil selects Background
	if serverBaseCtx.Err() != nil {
		t.Fatalf("base context should be Background after nil")
	}
}
