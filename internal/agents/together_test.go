package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestTogetherRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"a\":1}"}}]}`))
	}))
	defer srv.Close()

	c := NewTogetherClient("test-key", srv.URL, "test-model")
	defer c.Close()

	raw, err := c.GenerateJSON(context.Background(), "hi")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(raw) != `{"a":1}` {
		t.Fatalf("raw = %s", raw)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestTogetherDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewTogetherClient("test-key", srv.URL, "test-model")
	defer c.Close()

	_, err := c.GenerateJSON(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("err = %v, want status error", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}
