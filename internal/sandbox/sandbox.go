// Package sandbox runs generated projects inside an isolated execution
// service to check that they install, test and boot.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"devforge/internal/types"
)

// ErrTimeout is returned when a sandbox does not become ready in time.
var ErrTimeout = errors.New("sandbox: creation timed out")

// Validator checks a generated project end to end.
type Validator interface {
	ValidateProject(ctx context.Context, files []types.ProjectFile) (*types.Validation, error)
}

const (
	defaultReadyTimeout = 5 * time.Minute
	defaultPollInterval = 5 * time.Second
	defaultStartupDelay = 5 * time.Second
)

// Client talks to a sandbox execution service over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     *logrus.Entry

	readyTimeout time.Duration
	pollInterval time.Duration
	startupDelay time.Duration
}

// NewClient builds a client for the service at baseURL.
func NewClient(baseURL, apiKey string, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		http:         &http.Client{Timeout: 60 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		log:          logger.WithField("component", "sandbox"),
		readyTimeout: defaultReadyTimeout,
		pollInterval: defaultPollInterval,
		startupDelay: defaultStartupDelay,
	}
}

// NewFromEnv returns an HTTP-backed validator when SANDBOX_URL is set and a
// no-op validator otherwise.
func NewFromEnv(logger *logrus.Logger) Validator {
	url := strings.TrimSpace(os.Getenv("SANDBOX_URL"))
	if url == "" {
		return NoopValidator{}
	}
	return NewClient(url, os.Getenv("SANDBOX_API_KEY"), logger)
}

// Sandbox is one provisioned execution environment.
type Sandbox struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// CommandResult is the outcome of one command run inside a sandbox.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sandbox: %s %s: unexpected status %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateSandbox provisions an environment from a template and waits until
// it reports ready.
func (c *Client) CreateSandbox(ctx context.Context, name, template string) (Sandbox, error) {
	var sb Sandbox
	err := c.do(ctx, http.MethodPost, "/sandboxes", map[string]string{
		"name":     name,
		"template": template,
	}, &sb)
	if err != nil {
		return Sandbox{}, err
	}
	if err := c.waitForReady(ctx, sb.ID); err != nil {
		return Sandbox{}, err
	}
	sb.Status = "ready"
	return sb, nil
}

func (c *Client) waitForReady(ctx context.Context, id string) error {
	deadline := time.Now().Add(c.readyTimeout)
	for time.Now().Before(deadline) {
		var sb Sandbox
		if err := c.do(ctx, http.MethodGet, "/sandboxes/"+id, nil, &sb); err != nil {
			return err
		}
		if sb.Status == "ready" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return ErrTimeout
}

// UploadFiles writes the project tree into the sandbox workspace.
func (c *Client) UploadFiles(ctx context.Context, id string, files []types.ProjectFile) error {
	return c.do(ctx, http.MethodPut, "/sandboxes/"+id+"/files", map[string]any{"files": files}, nil)
}

// ExecuteCommand runs one shell command inside the sandbox.
func (c *Client) ExecuteCommand(ctx context.Context, id, command string) (CommandResult, error) {
	var out CommandResult
	err := c.do(ctx, http.MethodPost, "/sandboxes/"+id+"/exec", map[string]string{"command": command}, &out)
	return out, err
}

// DeleteSandbox tears the environment down.
func (c *Client) DeleteSandbox(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sandboxes/"+id, nil, nil)
}

// ValidateProject provisions a sandbox, uploads the files, installs
// dependencies, runs the tests and tries to boot the app. Failures come
// back inside the Validation rather than as an error so callers always
// get a verdict.
func (c *Client) ValidateProject(ctx context.Context, files []types.ProjectFile) (*types.Validation, error) {
	sb, err := c.CreateSandbox(ctx, "validation", "node")
	if err != nil {
		return &types.Validation{Success: false, Errors: []string{err.Error()}}, nil
	}
	defer func() {
		if err := c.DeleteSandbox(context.WithoutCancel(ctx), sb.ID); err != nil {
			c.log.WithError(err).WithField("sandbox", sb.ID).Warn("sandbox cleanup failed")
		}
	}()

	if err := c.UploadFiles(ctx, sb.ID, files); err != nil {
		return &types.Validation{Success: false, Errors: []string{err.Error()}}, nil
	}

	install, err := c.ExecuteCommand(ctx, sb.ID, "cd /project/sandbox && npm install")
	if err != nil {
		return &types.Validation{Success: false, Errors: []string{err.Error()}}, nil
	}

	var testErrs []string
	test, err := c.ExecuteCommand(ctx, sb.ID, "cd /project/sandbox && npm test")
	if err != nil {
		c.log.WithError(err).Info("no tests found or tests failed")
	} else if test.ExitCode != 0 {
		testErrs = append(testErrs, "Tests failed: "+test.Stderr)
	}

	started := false
	var startErr string
	if _, err := c.ExecuteCommand(ctx, sb.ID, "cd /project/sandbox && npm start &"); err != nil {
		startErr = err.Error()
	} else {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.startupDelay):
		}
		ps, err := c.ExecuteCommand(ctx, sb.ID, "ps aux | grep node")
		if err != nil {
			startErr = err.Error()
		} else {
			started = strings.Contains(ps.Stdout, "npm start")
		}
	}

	var errs []string
	if install.ExitCode != 0 {
		errs = append(errs, "Installation failed: "+install.Stderr)
	}
	errs = append(errs, testErrs...)
	if !started {
		if startErr == "" {
			startErr = "Unknown error"
		}
		errs = append(errs, "Application failed to start: "+startErr)
	}

	return &types.Validation{Success: started, Errors: errs}, nil
}

// NoopValidator is used when no sandbox service is configured. Projects
// pass with a warning so creation flows stay usable.
type NoopValidator struct{}

func (NoopValidator) ValidateProject(context.Context, []types.ProjectFile) (*types.Validation, error) {
	return &types.Validation{
		Success:  true,
		Warnings: []string{"validation skipped: no sandbox configured"},
	}, nil
}
