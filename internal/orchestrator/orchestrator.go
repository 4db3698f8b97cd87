// Package orchestrator coordinates the clarification gate, agent
// deployment, sandbox validation and learning feedback for the three task
// modes: analysis, creation and extension.
package orchestrator

import (
	"context"

	"github.com/sirupsen/logrus"

	"devforge/internal/agents"
	"devforge/internal/artifact"
	"devforge/internal/clarify"
	"devforge/internal/learning"
	"devforge/internal/sandbox"
	"devforge/internal/templates"
	"devforge/internal/types"
)

// Memory is the persistence surface the orchestrator itself touches.
// *memory.Store satisfies it.
type Memory interface {
	PutClarificationRequest(ctx context.Context, req types.ClarificationRequest) error
	GetClarificationRequest(ctx context.Context, id string) (types.ClarificationRequest, error)
	PutClarificationResponse(ctx context.Context, resp types.ClarificationResponse) error
	PutProject(ctx context.Context, p types.Project) error
}

// AgentRunner dispatches analysis and creation tasks to named agents.
// *agents.Registry satisfies it.
type AgentRunner interface {
	Analyze(ctx context.Context, agentID string, opts agents.AnalyzeOptions) (*agents.AnalysisOutput, error)
	Create(ctx context.Context, agentID string, opts agents.CreateOptions) (*agents.CreationOutput, error)
}

// Orchestrator wires the engines together. Construct with New.
type Orchestrator struct {
	clarifier *clarify.Engine
	learning  *learning.Engine
	memory    Memory
	agents    AgentRunner
	sandbox   sandbox.Validator
	artifacts artifact.Store
	templates *templates.Library
	events    *Broadcaster
	log       *logrus.Entry
}

// Options carries the orchestrator's collaborators. Learning, Memory and
// Agents are required; Sandbox and Artifacts may be nil and degrade to
// no-ops.
type Options struct {
	Learning  *learning.Engine
	Memory    Memory
	Agents    AgentRunner
	Sandbox   sandbox.Validator
	Artifacts artifact.Store
	Logger    *logrus.Logger
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	validator := opts.Sandbox
	if validator == nil {
		validator = sandbox.NoopValidator{}
	}
	return &Orchestrator{
		clarifier: clarify.New(),
		learning:  opts.Learning,
		memory:    opts.Memory,
		agents:    opts.Agents,
		sandbox:   validator,
		artifacts: opts.Artifacts,
		templates: templates.NewLibrary(),
		events:    NewBroadcaster(),
		log:       logger.WithField("component", "orchestrator"),
	}
}

// Templates returns the fixed project template catalog.
func (o *Orchestrator) Templates() []types.Template {
	return o.templates.Catalog()
}

// Watch subscribes to the orchestrator's lifecycle event stream. The
// returned cancel func must be called when done.
func (o *Orchestrator) Watch() (<-chan Event, func()) {
	return o.events.Subscribe()
}

// Outcome is the uniform reply of every task entry point. When
// NeedsClarification is set, only the clarification fields are populated
// and the task is suspended under InteractionID.
type Outcome struct {
	InteractionID      string            `json:"interactionId,omitempty"`
	NeedsClarification bool              `json:"needsClarification"`
	Questions          []string          `json:"questions,omitempty"`
	Ambiguities        []types.Ambiguity `json:"ambiguities,omitempty"`
	ContextualMatches  []string          `json:"contextualMatches,omitempty"`
	IsFollowUp         bool              `json:"isFollowUp,omitempty"`
	Confidence         float64           `json:"confidence"`
	Analysis           *AnalysisReport   `json:"analysis,omitempty"`
	Creation           *CreationOutcome  `json:"creation,omitempty"`
	Extension          *ExtensionOutcome `json:"extension,omitempty"`
}
