//go:build !swagger

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountSwagger_NoRoutesWithoutTag(t *testing.T) {
	r := chi.NewRouter()
	MountSwagger(r)
	if n := len(r.Routes()); n != 0 {
		t.Fatalf("stub mounted %d routes", n)
	}

	mux := NewMux(&mockService{ready: true, model: "tiny.gguf"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("/swagger/ without the swagger tag = %d, want 404", rec.Code)
	}
}
