package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"devforge/internal/agents"
	"devforge/internal/artifact"
	"devforge/internal/learning"
	"devforge/internal/memory"
	"devforge/internal/sandbox"
	"devforge/internal/types"
)

type fakeMemory struct {
	mu        sync.Mutex
	requests  map[string]types.ClarificationRequest
	responses []types.ClarificationResponse
	projects  []types.Project
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{requests: map[string]types.ClarificationRequest{}}
}

func (m *fakeMemory) PutClarificationRequest(_ context.Context, req types.ClarificationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
	return nil
}

func (m *fakeMemory) GetClarificationRequest(_ context.Context, id string) (types.ClarificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return types.ClarificationRequest{}, memory.ErrNotFound
	}
	return req, nil
}

func (m *fakeMemory) PutClarificationResponse(_ context.Context, resp types.ClarificationResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return nil
}

func (m *fakeMemory) PutProject(_ context.Context, p types.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = append(m.projects, p)
	return nil
}

type agentCall struct {
	Agent string
	Task  string
	Mode  string // analyze or create
}

// fakeAgents records calls and replies with scripted outputs keyed by task.
type fakeAgents struct {
	mu       sync.Mutex
	calls    []agentCall
	analysis map[string]*agents.AnalysisOutput
	creation map[string]*agents.CreationOutput
}

func newFakeAgents() *fakeAgents {
	return &fakeAgents{
		analysis: map[string]*agents.AnalysisOutput{},
		creation: map[string]*agents.CreationOutput{},
	}
}

func (f *fakeAgents) Analyze(_ context.Context, agentID string, opts agents.AnalyzeOptions) (*agents.AnalysisOutput, error) {
	f.mu.Lock()
	f.calls = append(f.calls, agentCall{Agent: agentID, Task: opts.Task, Mode: "analyze"})
	f.mu.Unlock()
	if out, ok := f.analysis[opts.Task]; ok {
		return out, nil
	}
	return &agents.AnalysisOutput{}, nil
}

func (f *fakeAgents) Create(_ context.Context, agentID string, opts agents.CreateOptions) (*agents.CreationOutput, error) {
	f.mu.Lock()
	f.calls = append(f.calls, agentCall{Agent: agentID, Task: opts.Task, Mode: "create"})
	f.mu.Unlock()
	if out, ok := f.creation[opts.Task]; ok {
		return out, nil
	}
	return &agents.CreationOutput{}, nil
}

func (f *fakeAgents) tasks(mode string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Mode == mode {
			out = append(out, c.Task)
		}
	}
	return out
}

type fakeLearningStore struct{}

func (fakeLearningStore) LearningPatterns(context.Context) (types.PatternSet, error) {
	return types.PatternSet{}, nil
}
func (fakeLearningStore) SavePatterns(context.Context, types.TaskKind, map[string]*types.LearnedPattern) error {
	return nil
}
func (fakeLearningStore) AppendInteraction(context.Context, types.Interaction) error { return nil }
func (fakeLearningStore) IncrementAgentPerformance(context.Context, string, string, string, bool) error {
	return nil
}

type passValidator struct{}

func (passValidator) ValidateProject(context.Context, []types.ProjectFile) (*types.Validation, error) {
	return &types.Validation{Success: true}, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeMemory, *fakeAgents) {
	t.Helper()
	mem := newFakeMemory()
	runner := newFakeAgents()
	o := New(Options{
		Learning:  learning.New(context.Background(), fakeLearningStore{}, nil),
		Memory:    mem,
		Agents:    runner,
		Sandbox:   passValidator{},
		Artifacts: artifact.NewMemoryStore(),
	})
	return o, mem, runner
}

// completeRequirements passes ambiguity detection and raises no follow-ups.
func completeRequirements() *types.Requirements {
	return &types.Requirements{
		Name:        "Inventory Tool",
		Description: "Internal tool for tracking stock levels",
		Type:        "web-app",
		Features:    []types.Feature{{Name: "reports", Description: "monthly reports"}},
		Framework:   "react",
		Backend:     "node",
		Design:      &types.DesignSpec{Style: "minimal"},
		DataModel:   &types.DataModelSpec{Type: "sql"},
		Users:       &types.UserSpec{Scale: "small"},
		Deployment:  &types.DeploymentSpec{Platform: "aws"},
		Timeline:    &types.TimelineSpec{Urgency: "medium"},
	}
}

func TestCreateProgramSuspendsOnAmbiguity(t *testing.T) {
	o, mem, runner := newTestOrchestrator(t)

	out, err := o.CreateProgram(context.Background(), &types.Requirements{}, nil)
	require.NoError(t, err)
	require.True(t, out.NeedsClarification)
	require.NotEmpty(t, out.InteractionID)
	require.NotEmpty(t, out.Questions)
	require.Len(t, out.Ambiguities, 5)
	require.InDelta(t, 0.5, out.Confidence, 1e-9)

	stored, ok := mem.requests[out.InteractionID]
	require.True(t, ok)
	require.Equal(t, types.TaskCreation, stored.Kind)
	require.Equal(t, out.Questions, stored.Questions)

	require.Empty(t, runner.calls, "no agents run before clarification resolves")
}

func TestCreateProgramRunsFullPipeline(t *testing.T) {
	o, mem, runner := newTestOrchestrator(t)
	runner.creation["component"] = &agents.CreationOutput{
		Files: []types.ProjectFile{{Name: "Reports.jsx", Path: "src/components/Reports.jsx", Content: "export default null;"}},
	}

	out, err := o.CreateProgram(context.Background(), completeRequirements(), nil)
	require.NoError(t, err)
	require.False(t, out.NeedsClarification)
	require.NotNil(t, out.Creation)

	creation := out.Creation
	require.Equal(t, "web-app", creation.Plan.Type)
	require.Contains(t, creation.Plan.Technologies, "react")
	require.Equal(t, "success", creation.Status)
	require.NotEmpty(t, creation.ProjectID)

	paths := map[string]bool{}
	for _, f := range creation.Files {
		paths[f.Path] = true
	}
	require.True(t, paths["package.json"])
	require.True(t, paths["README.md"])
	require.True(t, paths["src/components/Reports.jsx"])

	createTasks := runner.tasks("create")
	require.Contains(t, createTasks, "architecture")
	require.Contains(t, createTasks, "component")
	require.Contains(t, createTasks, "styling")
	require.Contains(t, createTasks, "testing")

	require.Len(t, mem.projects, 1)
	require.Equal(t, creation.ProjectID, mem.projects[0].ID)
}

func TestCreationRecordsLearningPattern(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	_, err := o.CreateProgram(context.Background(), completeRequirements(), nil)
	require.NoError(t, err)

	patterns := o.learning.Patterns()
	p := patterns[types.TaskCreation]["web-app"]
	require.NotNil(t, p)
	require.Equal(t, 1, p.Uses)
	require.InDelta(t, 1.0, p.SuccessRate, 1e-9)
}

func TestAnalyzeCodeSuspendsWithoutFocus(t *testing.T) {
	o, mem, runner := newTestOrchestrator(t)

	out, err := o.AnalyzeCode(context.Background(), []types.ProjectFile{{Name: "a.js", Path: "a.js"}}, nil)
	require.NoError(t, err)
	require.True(t, out.NeedsClarification)
	require.Equal(t, analysisClarificationQuestions, out.Questions)
	require.InDelta(t, 0.7, out.Confidence, 1e-9)

	stored := mem.requests[out.InteractionID]
	require.Equal(t, types.TaskAnalysis, stored.Kind)
	require.Empty(t, runner.calls)
}

func TestAnalyzeCodeSynthesizesIssues(t *testing.T) {
	o, _, runner := newTestOrchestrator(t)
	runner.analysis[""] = &agents.AnalysisOutput{
		Issues: []types.Issue{
			{File: "a.js", Line: 1, Severity: "low", Type: "code-quality", Message: "var used"},
			{File: "a.js", Line: 2, Severity: "critical", Type: "security", Message: "eval"},
			{File: "a.js", Line: 1, Severity: "low", Type: "code-quality", Message: "var used"},
		},
	}

	files := []types.ProjectFile{
		{Name: "package.json", Path: "package.json", Content: `{"dependencies":{"react":"^18.2.0"}}`},
		{Name: "App.js", Path: "src/App.js", Content: `import React from 'react';`},
	}
	out, err := o.AnalyzeCode(context.Background(), files, &types.ProjectContext{AnalysisFocus: "security"})
	require.NoError(t, err)
	require.NotNil(t, out.Analysis)

	report := out.Analysis
	require.Equal(t, "web-app", report.ProjectType)
	require.Len(t, report.Issues, 2, "duplicates removed")
	require.Equal(t, "critical", report.Issues[0].Severity, "issues sorted by severity")
	require.Equal(t, 1, report.Summary.CriticalIssues)
	require.Equal(t, 1, report.Summary.LowIssues)
	require.Equal(t, 2, report.Summary.TotalFiles)

	var securityRec *types.Recommendation
	for i := range report.Recommendations {
		if report.Recommendations[i].Type == "security" {
			securityRec = &report.Recommendations[i]
		}
	}
	require.NotNil(t, securityRec)
	require.Equal(t, "critical", securityRec.Priority)

	// One fix request per issue type.
	createTasks := runner.tasks("create")
	fixCount := 0
	for _, task := range createTasks {
		if task == "fix" {
			fixCount++
		}
	}
	require.Equal(t, 2, fixCount)
}

func TestSubmitClarificationUnknownID(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	_, err := o.SubmitClarificationResponse(context.Background(), "missing", []string{"x"})
	require.ErrorIs(t, err, ErrClarificationNotFound)
}

func TestSubmitClarificationRaisesFollowUp(t *testing.T) {
	o, mem, _ := newTestOrchestrator(t)

	req := completeRequirements()
	id := "interaction-1"
	require.NoError(t, mem.PutClarificationRequest(context.Background(), types.ClarificationRequest{
		ID:           id,
		Kind:         types.TaskCreation,
		Requirements: req,
		Questions:    []string{"What systems or services should this integrate with?"},
		Timestamp:    time.Now(),
	}))

	out, err := o.SubmitClarificationResponse(context.Background(), id, []string{"the Stripe API"})
	require.NoError(t, err)
	require.True(t, out.NeedsClarification)
	require.True(t, out.IsFollowUp)
	require.InDelta(t, 0.8, out.Confidence, 1e-9)
	require.NotEqual(t, id, out.InteractionID)

	follow := mem.requests[out.InteractionID]
	require.True(t, follow.IsFollowUp)
	require.Equal(t, id, follow.OriginalInteractionID)
	require.Contains(t, follow.Questions, "Do you have API documentation for the external services?")
	require.Empty(t, mem.responses, "no response persisted while follow-ups are open")
}

func TestSubmitClarificationResolvesAndDispatches(t *testing.T) {
	o, mem, runner := newTestOrchestrator(t)

	id := "interaction-2"
	require.NoError(t, mem.PutClarificationRequest(context.Background(), types.ClarificationRequest{
		ID:           id,
		Kind:         types.TaskCreation,
		Requirements: completeRequirements(),
		Questions:    []string{"What is your timeline for this project?"},
		Timestamp:    time.Now(),
	}))

	out, err := o.SubmitClarificationResponse(context.Background(), id, []string{"about a month"})
	require.NoError(t, err)
	require.False(t, out.NeedsClarification)
	require.NotNil(t, out.Creation)

	require.Len(t, mem.responses, 1)
	require.Equal(t, id, mem.responses[0].InteractionID)
	require.NotEmpty(t, runner.tasks("create"))
}

func TestAnalysisClarificationAnswersFeedContext(t *testing.T) {
	o, mem, _ := newTestOrchestrator(t)

	files := []types.ProjectFile{{Name: "a.js", Path: "a.js", Content: "let x = 1"}}
	first, err := o.AnalyzeCode(context.Background(), files, nil)
	require.NoError(t, err)
	require.True(t, first.NeedsClarification)

	out, err := o.SubmitClarificationResponse(context.Background(), first.InteractionID,
		[]string{"performance", "slow startup", "make it faster"})
	require.NoError(t, err)
	require.False(t, out.NeedsClarification)
	require.NotNil(t, out.Analysis)

	require.Len(t, mem.responses, 1)
	ctx := mem.responses[0].UpdatedProjectContext
	require.NotNil(t, ctx)
	require.Equal(t, "performance", ctx.AnalysisFocus)
	require.Equal(t, "slow startup", ctx.Concerns)
	require.Equal(t, "make it faster", ctx.AnalysisGoal)
	require.Contains(t, out.Analysis.Strategy.FocusAreas, "performance")
}

func TestExtendProjectPipeline(t *testing.T) {
	o, _, runner := newTestOrchestrator(t)
	runner.analysis["integration-points"] = &agents.AnalysisOutput{
		IntegrationPoints: []agents.IntegrationPoint{{Type: "component", Location: "src/components"}},
	}
	runner.analysis["conflict-detection"] = &agents.AnalysisOutput{
		Conflicts: []agents.Conflict{{File: "src/App.js", Line: 3, Description: "route clash"}},
	}
	runner.creation["generate-files"] = &agents.CreationOutput{
		Files: []types.ProjectFile{{Name: "Search.jsx", Path: "src/components/Search.jsx", Content: "new"}},
	}
	runner.creation["modify-files"] = &agents.CreationOutput{
		ModifiedFiles: []types.ProjectFile{{Name: "App.js", Path: "src/App.js", Content: "modified"}},
	}
	runner.creation["resolve-conflicts"] = &agents.CreationOutput{
		Resolutions: []agents.Resolution{{File: "src/App.js", Description: "renamed route"}},
	}

	existing := []types.ProjectFile{
		{Name: "package.json", Path: "package.json", Content: `{"dependencies":{"react":"^18.2.0"}}`},
		{Name: "App.js", Path: "src/App.js", Content: "original"},
	}
	req := completeRequirements()
	req.Features = []types.Feature{{Name: "reports", Description: "monthly reports"}}

	out, err := o.ExtendProject(context.Background(), existing, req, nil)
	require.NoError(t, err)
	require.False(t, out.NeedsClarification)
	require.NotNil(t, out.Extension)

	ext := out.Extension
	require.Equal(t, "web-app", ext.ProjectType)
	require.Len(t, ext.IntegrationPoints, 1)
	require.Len(t, ext.Conflicts, 1)
	require.Len(t, ext.Resolutions, 1)
	require.Len(t, ext.NewFiles, 1)

	byPath := map[string]string{}
	for _, f := range ext.Files {
		byPath[f.Path] = f.Content
	}
	require.Equal(t, "modified", byPath["src/App.js"])
	require.Equal(t, "new", byPath["src/components/Search.jsx"])

	patterns := o.learning.Patterns()
	require.NotNil(t, patterns[types.TaskHybrid]["web-app"])
	require.Equal(t, 1, patterns[types.TaskHybrid]["web-app"].Uses)
}

func TestValidationFailureFailsLearning(t *testing.T) {
	mem := newFakeMemory()
	runner := newFakeAgents()
	o := New(Options{
		Learning: learning.New(context.Background(), fakeLearningStore{}, nil),
		Memory:   mem,
		Agents:   runner,
		Sandbox:  failValidator{},
	})

	out, err := o.CreateProgram(context.Background(), completeRequirements(), nil)
	require.NoError(t, err)
	require.Equal(t, "failed", out.Creation.Status)

	p := o.learning.Patterns()[types.TaskCreation]["web-app"]
	require.NotNil(t, p)
	require.InDelta(t, 0.0, p.SuccessRate, 1e-9)
}

type failValidator struct{}

func (failValidator) ValidateProject(context.Context, []types.ProjectFile) (*types.Validation, error) {
	return &types.Validation{Success: false, Errors: []string{"npm install failed"}}, nil
}

func TestTemplatesCatalog(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	catalog := o.Templates()
	require.Len(t, catalog, 3)
}

func TestWatchReceivesLifecycleEvents(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ch, cancel := o.Watch()
	defer cancel()

	_, err := o.CreateProgram(context.Background(), &types.Requirements{}, nil)
	require.NoError(t, err)

	select {
	case evt := <-ch:
		require.Equal(t, EventClarificationRequested, evt.Type)
		require.Equal(t, string(types.TaskCreation), evt.Kind)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestNoopSandboxDefault(t *testing.T) {
	mem := newFakeMemory()
	o := New(Options{
		Learning: learning.New(context.Background(), fakeLearningStore{}, nil),
		Memory:   mem,
		Agents:   newFakeAgents(),
	})
	require.IsType(t, sandbox.NoopValidator{}, o.sandbox)

	out, err := o.CreateProgram(context.Background(), completeRequirements(), nil)
	require.NoError(t, err)
	require.Equal(t, "success", out.Creation.Status)
	require.NotEmpty(t, out.Creation.Validation.Warnings)
}
