package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"devforge/internal/types"
)

// fakeService mimics the sandbox execution API with canned command output.
type fakeService struct {
	statusPolls int
	commands    []string
	deleted     bool
	psOutput    string
	testExit    int
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sandboxes", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Sandbox{ID: "sb-1", Status: "creating"})
	})
	mux.HandleFunc("GET /sandboxes/sb-1", func(w http.ResponseWriter, r *http.Request) {
		f.statusPolls++
		status := "creating"
		if f.statusPolls >= 2 {
			status = "ready"
		}
		_ = json.NewEncoder(w).Encode(Sandbox{ID: "sb-1", Status: status})
	})
	mux.HandleFunc("PUT /sandboxes/sb-1/files", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /sandboxes/sb-1/exec", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Command string `json:"command"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.commands = append(f.commands, body.Command)

		out := CommandResult{}
		switch {
		case strings.Contains(body.Command, "ps aux"):
			out.Stdout = f.psOutput
		case strings.Contains(body.Command, "npm test"):
			out.ExitCode = f.testExit
			if f.testExit != 0 {
				out.Stderr = "1 test failed"
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("DELETE /sandboxes/sb-1", func(w http.ResponseWriter, r *http.Request) {
		f.deleted = true
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeService) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "", nil)
	c.pollInterval = time.Millisecond
	c.startupDelay = time.Millisecond
	c.readyTimeout = time.Second
	return c
}

func TestValidateProjectSuccess(t *testing.T) {
	f := &fakeService{psOutput: "root 1 npm start\nroot 2 node server.js"}
	c := newTestClient(t, f)

	v, err := c.ValidateProject(context.Background(), []types.ProjectFile{{Path: "index.js", Content: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	if !v.Success || len(v.Errors) != 0 {
		t.Fatalf("validation = %+v", v)
	}
	if !f.deleted {
		t.Fatal("sandbox was not cleaned up")
	}
	if f.statusPolls < 2 {
		t.Fatalf("statusPolls = %d, want readiness polling", f.statusPolls)
	}
}

func TestValidateProjectStartFailure(t *testing.T) {
	f := &fakeService{psOutput: "root 1 bash"}
	c := newTestClient(t, f)

	v, err := c.ValidateProject(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Success {
		t.Fatalf("validation = %+v, want failure", v)
	}
	found := false
	for _, e := range v.Errors {
		if strings.Contains(e, "failed to start") {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %v", v.Errors)
	}
}

func TestValidateProjectTestFailureIsReported(t *testing.T) {
	f := &fakeService{psOutput: "npm start", testExit: 1}
	c := newTestClient(t, f)

	v, err := c.ValidateProject(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	// The app still started, so the run succeeds but the failure is listed.
	if !v.Success {
		t.Fatalf("validation = %+v", v)
	}
	if len(v.Errors) != 1 || !strings.Contains(v.Errors[0], "Tests failed") {
		t.Fatalf("errors = %v", v.Errors)
	}
}

func TestWaitForReadyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Sandbox{ID: "sb-1", Status: "creating"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	c.pollInterval = time.Millisecond
	c.readyTimeout = 10 * time.Millisecond

	if err := c.waitForReady(context.Background(), "sb-1"); err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestNoopValidator(t *testing.T) {
	v, err := NoopValidator{}.ValidateProject(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Success || len(v.Warnings) != 1 {
		t.Fatalf("validation = %+v", v)
	}
}
