package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"devforge/internal/types"
)

// Spec describes one agent in the roster.
type Spec struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Capabilities []string `json:"capabilities"`
}

var roster = []Spec{
	{
		ID:           "deepseek-r1",
		Name:         "DeepSeek-R1-0528",
		Model:        "deepseek-ai/DeepSeek-R1-0528",
		Capabilities: []string{"code-review", "document-analysis", "planning", "information-extraction", "coding"},
	},
	{
		ID:           "deepseek-v3",
		Name:         "DeepSeek-V3",
		Model:        "deepseek-ai/DeepSeek-V3",
		Capabilities: []string{"coding", "optimization", "refactoring"},
	},
	{
		ID:           "qwen3-coder",
		Name:         "Qwen3-Coder-480B",
		Model:        "Qwen/Qwen3-Coder-480B",
		Capabilities: []string{"coding", "architecture", "debugging"},
	},
}

var geminiSpec = Spec{
	ID:           "gemini-flash",
	Name:         "Gemini-2.0-Flash",
	Model:        "gemini-2.0-flash",
	Capabilities: []string{"code-review", "planning", "coding"},
}

// IntegrationPoint is a location where a new feature hooks into an
// existing project.
type IntegrationPoint struct {
	Type        string `json:"type"` // component, api, style
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Conflict is a collision between existing and newly generated code.
type Conflict struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	ExistingCode string `json:"existingCode"`
	NewCode      string `json:"newCode"`
	Description  string `json:"description"`
}

// Resolution is a resolved conflict.
type Resolution struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	OriginalCode string `json:"originalCode"`
	ResolvedCode string `json:"resolvedCode"`
	Description  string `json:"description"`
}

// AnalyzeOptions selects what an analysis prompt covers.
type AnalyzeOptions struct {
	Task         string
	FocusArea    string
	Files        []types.ProjectFile
	Feature      *types.Feature
	Architecture any
}

// AnalysisOutput is a parsed analysis reply. The optional sections only
// appear for the tasks that request them.
type AnalysisOutput struct {
	Issues            []types.Issue          `json:"issues"`
	Patterns          []types.CodePattern    `json:"patterns"`
	Metrics           map[string]json.Number `json:"metrics"`
	Recommendations   []types.Recommendation `json:"recommendations"`
	IntegrationPoints []IntegrationPoint     `json:"integrationPoints,omitempty"`
	Conflicts         []Conflict             `json:"conflicts,omitempty"`
	Validation        *types.Validation      `json:"validation,omitempty"`
}

// CreateOptions selects what a creation prompt covers.
type CreateOptions struct {
	Task              string
	Component         any
	ProjectType       string
	Components        any
	Issues            []types.Issue
	Feature           *types.Feature
	IntegrationPoints []IntegrationPoint
	Files             []types.ProjectFile
	Architecture      any
	ProjectPlan       any
	Conflicts         []Conflict
}

// CreationOutput is a parsed creation reply.
type CreationOutput struct {
	Files         []types.ProjectFile `json:"files"`
	Fixes         []types.Fix         `json:"fixes,omitempty"`
	ModifiedFiles []types.ProjectFile `json:"modifiedFiles,omitempty"`
	Resolutions   []Resolution        `json:"resolutions,omitempty"`
	Architecture  json.RawMessage     `json:"architecture,omitempty"`
}

// Registry owns one transport per agent id.
type Registry struct {
	clients map[string]Client
	specs   []Spec
	log     *logrus.Entry
}

// New builds the standard roster on the Together transport and, when
// GEMINI_API_KEY is configured, adds the Gemini agent on the genai
// transport.
func New(ctx context.Context, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Registry{
		clients: map[string]Client{},
		log:     logger.WithField("component", "agents"),
	}
	for _, spec := range roster {
		r.clients[spec.ID] = NewTogetherClient("", "", spec.Model)
		r.specs = append(r.specs, spec)
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		gc, err := NewGeminiClient(ctx, geminiSpec.Model)
		if err != nil {
			r.log.WithError(err).Warn("gemini transport unavailable")
		} else {
			r.clients[geminiSpec.ID] = gc
			r.specs = append(r.specs, geminiSpec)
		}
	}
	return r
}

// NewWithClients builds a registry over caller-supplied transports.
func NewWithClients(clients map[string]Client, specs []Spec, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		clients: clients,
		specs:   specs,
		log:     logger.WithField("component", "agents"),
	}
}

// Specs lists the roster.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Has reports whether agentID is in the roster.
func (r *Registry) Has(agentID string) bool {
	_, ok := r.clients[agentID]
	return ok
}

func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Analyze runs one analysis task on the named agent. A reply that carries
// no parseable JSON degrades to an empty result instead of failing the run.
func (r *Registry) Analyze(ctx context.Context, agentID string, opts AnalyzeOptions) (*AnalysisOutput, error) {
	client, ok := r.clients[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	raw, err := client.GenerateJSON(ctx, analysisPrompt(opts))
	if errors.Is(err, ErrInvalidJSON) {
		r.log.WithField("agent", agentID).Warn("unparseable analysis reply, returning empty result")
		return emptyAnalysis(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent %s analyze: %w", agentID, err)
	}

	out := emptyAnalysis()
	if err := json.Unmarshal(raw, out); err != nil {
		r.log.WithField("agent", agentID).WithError(err).Warn("analysis reply shape mismatch, returning empty result")
		return emptyAnalysis(), nil
	}
	return out, nil
}

// Create runs one creation task on the named agent, with the same
// degrade-to-empty behavior as Analyze.
func (r *Registry) Create(ctx context.Context, agentID string, opts CreateOptions) (*CreationOutput, error) {
	client, ok := r.clients[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	raw, err := client.GenerateJSON(ctx, creationPrompt(opts))
	if errors.Is(err, ErrInvalidJSON) {
		r.log.WithField("agent", agentID).Warn("unparseable creation reply, returning empty result")
		return &CreationOutput{Files: []types.ProjectFile{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent %s create: %w", agentID, err)
	}

	out := &CreationOutput{Files: []types.ProjectFile{}}
	if err := json.Unmarshal(raw, out); err != nil {
		r.log.WithField("agent", agentID).WithError(err).Warn("creation reply shape mismatch, returning empty result")
		return &CreationOutput{Files: []types.ProjectFile{}}, nil
	}
	return out, nil
}

func emptyAnalysis() *AnalysisOutput {
	return &AnalysisOutput{
		Issues:          []types.Issue{},
		Patterns:        []types.CodePattern{},
		Metrics:         map[string]json.Number{},
		Recommendations: []types.Recommendation{},
	}
}
