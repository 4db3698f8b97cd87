package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// TogetherClient calls the Together Chat Completions API
// (OpenAI-compatible). See: https://docs.together.ai/reference/chat-completions
type TogetherClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
	rl      *rpsLimiter
}

// NewTogetherClient creates a client for one model. An empty apiKey falls
// back to TOGETHER_API_KEY; an empty baseURL falls back to TOGETHER_API_URL
// and then the public endpoint.
func NewTogetherClient(apiKey, baseURL, model string) *TogetherClient {
	if apiKey == "" {
		apiKey = os.Getenv("TOGETHER_API_KEY")
	}
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv("TOGETHER_API_URL"))
	}
	if baseURL == "" {
		baseURL = "https://api.together.xyz"
	}

	var rps float64
	var burst int
	if v := os.Getenv("TOGETHER_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rps = f
		}
	}
	if v := os.Getenv("TOGETHER_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			burst = n
		}
	}

	return &TogetherClient{
		http:    &http.Client{Timeout: 120 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		rl:      newRPSLimiter(rps, burst),
	}
}

func (t *TogetherClient) Name() string { return "Together:" + t.model }

func (t *TogetherClient) Close() error {
	t.rl.Stop()
	return nil
}

type togetherChatReq struct {
	Model       string            `json:"model"`
	Messages    []togetherMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float32           `json:"temperature,omitempty"`
	TopP        float32           `json:"top_p,omitempty"`
	Stream      bool              `json:"stream"`
}

type togetherMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type togetherChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateJSON sends the prompt and extracts the JSON object from the
// model's reply. Transport failures, 429 and 5xx responses are retried
// with backoff; other errors fail immediately.
func (t *TogetherClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	if err := t.rl.Acquire(ctx); err != nil {
		return nil, err
	}

	reqBody := togetherChatReq{
		Model: t.model,
		Messages: []togetherMessage{
			{Role: "system", Content: "You are an expert AI assistant specializing in software development and analysis."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   4096,
		Temperature: 0.7,
		TopP:        0.9,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		raw, retryable, err := t.complete(ctx, b)
		if err == nil {
			return raw, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (t *TogetherClient) complete(ctx context.Context, body []byte) (raw json.RawMessage, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, errors.New("together: unexpected status " + resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, errors.New("together: unexpected status " + resp.Status)
	}
	var out togetherChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, false, ErrInvalidJSON
	}
	raw, err = extractJSON(out.Choices[0].Message.Content)
	return raw, false, err
}
