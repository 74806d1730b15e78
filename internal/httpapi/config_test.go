package httpapi

import (
	"testing"
	"time"
)

func TestSetMaxBodyBytes(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetRequestTimeout_NormalizesNegative(t *testing.T) {
	defer SetRequestTimeout(0)
	SetRequestTimeout(-time.Second)
	if requestTimeout != 0 {
		t.Fatalf("expected 0, got %s", requestTimeout)
	}
	SetRequestTimeout(3 * time.Second)
	if requestTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", requestTimeout)
	}
}

func TestCORSOptions_Defaults(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	o := corsOptions()
	if len(o.AllowedMethods) != 3 || len(o.AllowedHeaders) == 0 || o.AllowedOrigins[0] != "*" {
		t.Fatalf("options=%+v", o)
	}
}
