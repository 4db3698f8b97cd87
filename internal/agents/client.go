// Package agents exposes the specialist model roster and the transports
// used to reach them. Callers pick an agent by id; the registry owns the
// prompt construction and the defensive parsing of model output.
package agents

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnknownAgent is returned when an agent id is not in the roster.
var ErrUnknownAgent = errors.New("agents: unknown agent")

// ErrInvalidJSON is returned when a model reply carries no parseable JSON.
var ErrInvalidJSON = errors.New("agents: invalid JSON from model")

// Client is one model transport. GenerateJSON sends the prompt and returns
// the JSON object extracted from the reply.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
	Close() error
}

// extractJSON pulls the outermost {...} block out of a model reply. Models
// often wrap the object in prose or code fences.
func extractJSON(content string) (json.RawMessage, error) {
	start := -1
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, ErrInvalidJSON
	}
	end := -1
	for i := len(content) - 1; i >= start; i-- {
		if content[i] == '}' {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, ErrInvalidJSON
	}
	raw := json.RawMessage(content[start : end+1])
	var scratch any
	if err := json.Unmarshal(raw, &scratch); err != nil {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}
