package learning

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"devforge/internal/memory"
	"devforge/internal/types"
)

type fakeStore struct {
	loaded       types.PatternSet
	savedKinds   []types.TaskKind
	saved        []map[string]*types.LearnedPattern
	interactions []types.Interaction
	ledger       map[string]int
}

func (f *fakeStore) LearningPatterns(context.Context) (types.PatternSet, error) {
	return f.loaded, nil
}

func (f *fakeStore) SavePatterns(_ context.Context, kind types.TaskKind, patterns map[string]*types.LearnedPattern) error {
	f.savedKinds = append(f.savedKinds, kind)
	f.saved = append(f.saved, patterns)
	return nil
}

func (f *fakeStore) AppendInteraction(_ context.Context, in types.Interaction) error {
	f.interactions = append(f.interactions, in)
	return nil
}

func (f *fakeStore) IncrementAgentPerformance(_ context.Context, agent, taskType, _ string, _ bool) error {
	if f.ledger == nil {
		f.ledger = map[string]int{}
	}
	f.ledger[agent+"/"+taskType]++
	return nil
}

func okResult() *types.CreationResult {
	return &types.CreationResult{Validation: &types.Validation{Success: true}}
}

func failedResult() *types.CreationResult {
	return &types.CreationResult{Validation: &types.Validation{Success: false}}
}

func TestDefaultStrategies(t *testing.T) {
	e := New(context.Background(), &fakeStore{}, nil)

	c := e.BestCreationStrategy("web-app")
	if c.Architect != "qwen3-coder" || c.Approach != "default" || c.Confidence != 0.5 {
		t.Fatalf("creation default = %+v", c)
	}
	a := e.BestAnalysisStrategy("web-app")
	if a.PrimaryAgent != "deepseek-r1" || a.Confidence != 0.5 {
		t.Fatalf("analysis default = %+v", a)
	}
	h := e.BestHybridStrategy("web-app")
	if h.Analyzer != "deepseek-r1" || h.Creator != "qwen3-coder" || h.Integrator != "deepseek-v3" {
		t.Fatalf("hybrid default = %+v", h)
	}
}

func TestRecordCreationUpdatesPattern(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()

	strategy := types.CreationStrategy{
		Architect: "arch-a",
		Builders:  []string{"build-b"},
		Styler:    "style-c",
	}
	if err := e.RecordCreation(ctx, "web-app", strategy, okResult()); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordCreation(ctx, "web-app", strategy, failedResult()); err != nil {
		t.Fatal(err)
	}

	got := e.BestCreationStrategy("web-app")
	if got.Approach != "learned" {
		t.Fatalf("approach = %q, want learned", got.Approach)
	}
	if got.Confidence != 0.5 {
		t.Fatalf("confidence = %v, want 0.5 after one success and one failure", got.Confidence)
	}
	if len(store.savedKinds) != 2 || store.savedKinds[0] != types.TaskCreation {
		t.Fatalf("savedKinds = %v", store.savedKinds)
	}
	if len(store.interactions) != 2 || store.interactions[0].Success != true {
		t.Fatalf("interactions = %+v", store.interactions)
	}
	if store.ledger["arch-a/architecture"] != 2 || store.ledger["build-b/building"] != 2 || store.ledger["style-c/styling"] != 2 {
		t.Fatalf("ledger = %v", store.ledger)
	}
}

func TestReevaluationPrefersStrictlyBetterAgent(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()

	weak := types.CreationStrategy{Architect: "weak", Builders: []string{"weak"}, Styler: "weak"}
	strong := types.CreationStrategy{Architect: "strong", Builders: []string{"strong"}, Styler: "strong"}

	// Two failures for the incumbent, then a success for the challenger.
	if err := e.RecordCreation(ctx, "api", weak, failedResult()); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordCreation(ctx, "api", weak, failedResult()); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordCreation(ctx, "api", strong, okResult()); err != nil {
		t.Fatal(err)
	}

	got := e.BestCreationStrategy("api")
	if got.Architect != "strong" || got.Builders[0] != "strong" || got.Styler != "strong" {
		t.Fatalf("strategy = %+v, want strong everywhere", got)
	}
}

func TestReevaluationIncumbentKeepsTies(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()

	a := types.CreationStrategy{Architect: "agent-a", Builders: []string{"agent-a"}, Styler: "agent-a"}
	b := types.CreationStrategy{Architect: "agent-b", Builders: []string{"agent-b"}, Styler: "agent-b"}

	// Both agents end up at 100%; the first-seen agent keeps the roles.
	if err := e.RecordCreation(ctx, "api", a, okResult()); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordCreation(ctx, "api", a, okResult()); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordCreation(ctx, "api", b, okResult()); err != nil {
		t.Fatal(err)
	}

	if got := e.BestCreationStrategy("api"); got.Architect != "agent-a" {
		t.Fatalf("architect = %q, want agent-a to keep the role on a tie", got.Architect)
	}
}

func TestNoReselectionBeforeThreeUses(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()

	weak := types.CreationStrategy{Architect: "weak", Builders: []string{"weak"}, Styler: "weak"}
	strong := types.CreationStrategy{Architect: "strong", Builders: []string{"strong"}, Styler: "strong"}

	// The incumbent fails and the challenger succeeds, but with only two
	// recorded uses the roles must not move yet.
	if err := e.RecordCreation(ctx, "api", weak, failedResult()); err != nil {
		t.Fatal(err)
	}
	if got := e.BestCreationStrategy("api"); got.Architect != "weak" {
		t.Fatalf("architect = %q after one use, want weak", got.Architect)
	}
	if err := e.RecordCreation(ctx, "api", strong, okResult()); err != nil {
		t.Fatal(err)
	}
	if got := e.BestCreationStrategy("api"); got.Architect != "weak" {
		t.Fatalf("architect = %q after two uses, want weak", got.Architect)
	}

	// The third use crosses the threshold and the challenger takes over.
	if err := e.RecordCreation(ctx, "api", strong, okResult()); err != nil {
		t.Fatal(err)
	}
	if got := e.BestCreationStrategy("api"); got.Architect != "strong" {
		t.Fatalf("architect = %q after three uses, want strong", got.Architect)
	}
}

func TestSuccessRateMatchesCounts(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()
	strategy := types.CreationStrategy{Architect: "a", Builders: []string{"b"}, Styler: "c"}

	results := []*types.CreationResult{
		okResult(), failedResult(), okResult(), okResult(), failedResult(), failedResult(), okResult(),
	}
	successes := 0
	for i, r := range results {
		if err := e.RecordCreation(ctx, "api", strategy, r); err != nil {
			t.Fatal(err)
		}
		if r.Validation.Success {
			successes++
		}
		want := float64(successes) / float64(i+1)
		got := e.BestCreationStrategy("api").Confidence
		if diff := got - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("successRate after %d runs = %v, want %v", i+1, got, want)
		}
	}
}

func TestSavedPatternsAreDetached(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()
	strategy := types.CreationStrategy{Architect: "a", Builders: []string{"b"}, Styler: "c"}

	if err := e.RecordCreation(ctx, "web-app", strategy, okResult()); err != nil {
		t.Fatal(err)
	}
	first := store.saved[0]["web-app"]
	if first.Uses != 1 || first.SuccessRate != 1.0 {
		t.Fatalf("first snapshot = %+v", first)
	}

	// Later recording must not reach back into the snapshot the store
	// already received.
	if err := e.RecordCreation(ctx, "web-app", strategy, failedResult()); err != nil {
		t.Fatal(err)
	}
	if first.Uses != 1 || first.SuccessRate != 1.0 {
		t.Fatalf("first snapshot mutated after second record: %+v", first)
	}
	if first.AgentPerformance["a"].Uses != 1 {
		t.Fatalf("first snapshot agent stats mutated: %+v", first.AgentPerformance["a"])
	}

	second := store.saved[1]["web-app"]
	if second.Uses != 2 || second.SuccessRate != 0.5 {
		t.Fatalf("second snapshot = %+v", second)
	}
}

func TestConcurrentRecordingAcrossKinds(t *testing.T) {
	store := memory.New(filepath.Join(t.TempDir(), "memory.json"))
	e := New(context.Background(), store, nil)
	ctx := context.Background()

	const runs = 50
	creation := types.CreationStrategy{Architect: "a", Builders: []string{"b"}, Styler: "c"}
	analysis := types.AnalysisStrategy{PrimaryAgent: "p", SecondaryAgents: []string{"s"}}

	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := e.RecordCreation(ctx, "web-app", creation, okResult()); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := e.RecordAnalysis(ctx, "web-app", analysis, nil); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	patterns := e.Patterns()
	if got := patterns[types.TaskCreation]["web-app"].Uses; got != runs {
		t.Fatalf("creation uses = %d, want %d", got, runs)
	}
	if got := patterns[types.TaskAnalysis]["web-app"].Uses; got != runs {
		t.Fatalf("analysis uses = %d, want %d", got, runs)
	}
}

func TestRecordAnalysisSuccessRule(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()
	strategy := types.AnalysisStrategy{PrimaryAgent: "p", SecondaryAgents: []string{"s"}}

	manyIssues := &types.AnalysisResult{Issues: make([]types.Issue, 10)}
	if err := e.RecordAnalysis(ctx, "api", strategy, manyIssues); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordAnalysis(ctx, "api", strategy, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordAnalysis(ctx, "api", strategy, &types.AnalysisResult{Issues: make([]types.Issue, 3)}); err != nil {
		t.Fatal(err)
	}

	// failure, success, success
	got := e.BestAnalysisStrategy("api")
	if got.Confidence < 0.66 || got.Confidence > 0.67 {
		t.Fatalf("confidence = %v, want 2/3", got.Confidence)
	}
	if store.ledger["p/analysis"] != 3 || store.ledger["s/analysis"] != 3 {
		t.Fatalf("ledger = %v", store.ledger)
	}
}

func TestRecordHybridLedgerTaskTypes(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	strategy := types.HybridStrategy{Analyzer: "an", Creator: "cr", Integrator: "in"}

	if err := e.RecordHybrid(context.Background(), "web-app", strategy, okResult()); err != nil {
		t.Fatal(err)
	}
	if store.ledger["an/analysis"] != 1 || store.ledger["cr/creation"] != 1 || store.ledger["in/integration"] != 1 {
		t.Fatalf("ledger = %v", store.ledger)
	}
}

func TestAggregateAgentPerformance(t *testing.T) {
	store := &fakeStore{}
	e := New(context.Background(), store, nil)
	ctx := context.Background()

	c := types.CreationStrategy{Architect: "shared", Builders: []string{"b"}, Styler: "s"}
	a := types.AnalysisStrategy{PrimaryAgent: "shared", SecondaryAgents: nil}
	if err := e.RecordCreation(ctx, "web-app", c, okResult()); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordAnalysis(ctx, "web-app", a, nil); err != nil {
		t.Fatal(err)
	}

	perf := e.AggregateAgentPerformance()
	shared := perf["shared"]
	if shared == nil || shared.Uses != 2 || shared.Successes != 2 || shared.SuccessRate != 1 {
		t.Fatalf("shared = %+v", shared)
	}
	if shared.Tasks[types.TaskCreation].Uses != 1 || shared.Tasks[types.TaskAnalysis].Uses != 1 {
		t.Fatalf("tasks = %+v", shared.Tasks)
	}
}

func TestLoadedPatternsSurvive(t *testing.T) {
	store := &fakeStore{loaded: types.PatternSet{
		types.TaskCreation: {
			"web-app": &types.LearnedPattern{
				Roles:       map[string]string{RoleArchitect: "x", RoleBuilder: "y", RoleStyler: "z"},
				SuccessRate: 0.9,
				Uses:        5,
			},
		},
	}}
	e := New(context.Background(), store, nil)

	got := e.BestCreationStrategy("web-app")
	if got.Architect != "x" || got.Confidence != 0.9 || got.Approach != "learned" {
		t.Fatalf("strategy = %+v", got)
	}
}
