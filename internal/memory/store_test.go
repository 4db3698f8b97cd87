package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"devforge/internal/types"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.json")
	return New(path), path
}

func TestClarificationRequestRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	req := types.ClarificationRequest{
		ID:        "clarification-1",
		Kind:      types.TaskCreation,
		Questions: []string{"What specific features should the app have?"},
		Requirements: &types.Requirements{
			Name: "Shop",
			Type: "web-app",
		},
		Ambiguities: []types.Ambiguity{types.AmbiguityMissingFeatures},
		Timestamp:   time.Now().UTC(),
	}
	if err := s.PutClarificationRequest(ctx, req); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetClarificationRequest(ctx, "clarification-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != types.TaskCreation || len(got.Questions) != 1 {
		t.Fatalf("got %+v", got)
	}

	if _, err := s.GetClarificationRequest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// A fresh store over the same file sees the persisted request.
	reopened := New(path)
	if _, err := reopened.GetClarificationRequest(ctx, "clarification-1"); err != nil {
		t.Fatalf("reopened store: %v", err)
	}
}

func TestClarificationHistoryFiltersByKindAndType(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	put := func(id string, kind types.TaskKind, projectType string, ts time.Time) {
		t.Helper()
		err := s.PutClarificationRequest(ctx, types.ClarificationRequest{
			ID:           id,
			Kind:         kind,
			Questions:    []string{"q"},
			Requirements: &types.Requirements{Type: projectType},
			Timestamp:    ts,
		})
		if err != nil {
			t.Fatal(err)
		}
		err = s.PutClarificationResponse(ctx, types.ClarificationResponse{
			InteractionID: id,
			Responses:     []string{"a"},
			Timestamp:     ts,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	put("new", types.TaskCreation, "web-app", base.Add(time.Minute))
	put("old", types.TaskCreation, "web-app", base)
	put("other-type", types.TaskCreation, "api", base)
	put("analysis", types.TaskAnalysis, "web-app", base)

	history, err := s.ClarificationHistory(ctx, "web-app")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %+v, want 2 entries", history)
	}
	if history[0].InteractionID != "new" || history[1].InteractionID != "old" {
		t.Fatalf("order = %s, %s", history[0].InteractionID, history[1].InteractionID)
	}
}

func TestPatternsRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	patterns := map[string]*types.LearnedPattern{
		"web-app": {
			Roles:       map[string]string{"architect": "qwen3-coder"},
			SuccessRate: 0.75,
			Uses:        4,
			AgentPerformance: map[string]*types.AgentStats{
				"qwen3-coder": {Uses: 4, Successes: 3},
			},
			AgentOrder: []string{"qwen3-coder"},
		},
	}
	if err := s.SavePatterns(ctx, types.TaskCreation, patterns); err != nil {
		t.Fatal(err)
	}

	loaded, err := New(path).LearningPatterns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	p := loaded[types.TaskCreation]["web-app"]
	if p == nil || p.SuccessRate != 0.75 || p.Uses != 4 {
		t.Fatalf("pattern = %+v", p)
	}
	if p.AgentOrder[0] != "qwen3-coder" {
		t.Fatalf("agentOrder = %v", p.AgentOrder)
	}
}

func TestRecentInteractions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"a", "b", "c"} {
		err := s.AppendInteraction(ctx, types.Interaction{
			ID:          id,
			Kind:        types.TaskCreation,
			ProjectType: "web-app",
			Success:     true,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.RecentInteractions(ctx, "web-app", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("got %+v", got)
	}

	// Same id replaces instead of duplicating.
	if err := s.AppendInteraction(ctx, types.Interaction{
		ID: "c", Kind: types.TaskCreation, ProjectType: "web-app", Success: false, Timestamp: base,
	}); err != nil {
		t.Fatal(err)
	}
	got, err = s.RecentInteractions(ctx, "web-app", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d after replace, want 3", len(got))
	}
}

func TestAgentPerformanceLedger(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.IncrementAgentPerformance(ctx, "deepseek-v3", "building", "web-app", i < 2); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.IncrementAgentPerformance(ctx, "qwen3-coder", "architecture", "web-app", true); err != nil {
		t.Fatal(err)
	}

	rows, err := s.AgentPerformance(ctx, "deepseek-v3", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	r := rows[0]
	if r.Uses != 3 || r.Successes != 2 {
		t.Fatalf("row = %+v", r)
	}
	if r.SuccessRate < 0.66 || r.SuccessRate > 0.67 {
		t.Fatalf("successRate = %v, want 2/3", r.SuccessRate)
	}

	all, err := s.AgentPerformance(ctx, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].AgentName != "deepseek-v3" {
		t.Fatalf("all = %+v, want deepseek-v3 first by uses", all)
	}
}

func TestProjectsUpsertAndRecency(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	if err := s.PutProject(ctx, types.Project{ID: "p1", Name: "old name", Type: "web-app", Timestamp: base}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutProject(ctx, types.Project{ID: "p1", Name: "new name", Type: "web-app", Timestamp: base}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutProject(ctx, types.Project{ID: "p2", Name: "later", Type: "web-app", Timestamp: base.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentProjects(ctx, "web-app", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("projects = %+v", got)
	}
	if got[0].ID != "p2" || got[1].Name != "new name" {
		t.Fatalf("projects = %+v", got)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if err := s.PutProject(ctx, types.Project{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetClarificationRequest(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
