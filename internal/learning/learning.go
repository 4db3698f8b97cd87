// Package learning tracks per project-type agent performance and adapts
// the agent assignments future tasks start from.
package learning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"devforge/internal/types"
)

// Role names inside a LearnedPattern.
const (
	RoleArchitect  = "architect"
	RoleBuilder    = "builder"
	RoleStyler     = "styler"
	RoleDetector   = "detector"
	RoleFixer      = "fixer"
	RoleAnalyzer   = "analyzer"
	RoleCreator    = "creator"
	RoleIntegrator = "integrator"
)

// reevaluateThreshold is the minimum sample size before role assignments
// are reconsidered.
const reevaluateThreshold = 3

// Store is the persistence surface the engine needs. *memory.Store
// satisfies it.
type Store interface {
	LearningPatterns(ctx context.Context) (types.PatternSet, error)
	SavePatterns(ctx context.Context, kind types.TaskKind, patterns map[string]*types.LearnedPattern) error
	AppendInteraction(ctx context.Context, in types.Interaction) error
	IncrementAgentPerformance(ctx context.Context, agent, taskType, projectType string, success bool) error
}

// Engine keeps learned patterns in memory and writes every update through
// to the store. Safe for concurrent use.
type Engine struct {
	store Store
	log   *logrus.Entry

	mu       sync.RWMutex
	patterns types.PatternSet
}

// New builds an engine and loads previously learned patterns. A load
// failure is logged and the engine starts empty; recording still persists.
func New(ctx context.Context, store Store, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Engine{
		store:    store,
		log:      logger.WithField("component", "learning"),
		patterns: types.PatternSet{},
	}
	if store != nil {
		loaded, err := store.LearningPatterns(ctx)
		if err != nil {
			e.log.WithError(err).Warn("could not load learned patterns, starting empty")
		} else if loaded != nil {
			e.patterns = loaded
		}
	}
	for _, kind := range []types.TaskKind{types.TaskCreation, types.TaskAnalysis, types.TaskHybrid} {
		if e.patterns[kind] == nil {
			e.patterns[kind] = map[string]*types.LearnedPattern{}
		}
	}
	return e
}

// RecordCreation feeds one finished creation run into the pattern for its
// project type. Missing validation counts as failure.
func (e *Engine) RecordCreation(ctx context.Context, projectType string, strategy types.CreationStrategy, result *types.CreationResult) error {
	success := result != nil && result.Validation != nil && result.Validation.Success

	agents := append([]string{strategy.Architect}, strategy.Builders...)
	agents = append(agents, strategy.Styler)
	initial := map[string]string{
		RoleArchitect: strategy.Architect,
		RoleBuilder:   firstOr(strategy.Builders, strategy.Architect),
		RoleStyler:    strategy.Styler,
	}
	if err := e.update(ctx, types.TaskCreation, projectType, agents, initial, success); err != nil {
		return err
	}

	if err := e.appendInteraction(ctx, types.TaskCreation, projectType, strategy, result, success); err != nil {
		return err
	}
	e.ledger(ctx, projectType, success, ledgerEntry{strategy.Architect, "architecture"})
	for _, b := range strategy.Builders {
		e.ledger(ctx, projectType, success, ledgerEntry{b, "building"})
	}
	e.ledger(ctx, projectType, success, ledgerEntry{strategy.Styler, "styling"})
	return nil
}

// RecordAnalysis feeds one finished analysis run into the pattern for its
// project type. An absent result counts as success; ten or more issues
// count as failure.
func (e *Engine) RecordAnalysis(ctx context.Context, projectType string, strategy types.AnalysisStrategy, result *types.AnalysisResult) error {
	success := result == nil || result.Issues == nil || len(result.Issues) < 10

	agents := append([]string{strategy.PrimaryAgent}, strategy.SecondaryAgents...)
	initial := map[string]string{
		RoleDetector: strategy.PrimaryAgent,
		RoleFixer:    firstOr(strategy.SecondaryAgents, strategy.PrimaryAgent),
	}
	if err := e.update(ctx, types.TaskAnalysis, projectType, agents, initial, success); err != nil {
		return err
	}

	if err := e.appendInteraction(ctx, types.TaskAnalysis, projectType, strategy, result, success); err != nil {
		return err
	}
	e.ledger(ctx, projectType, success, ledgerEntry{strategy.PrimaryAgent, "analysis"})
	for _, a := range strategy.SecondaryAgents {
		e.ledger(ctx, projectType, success, ledgerEntry{a, "analysis"})
	}
	return nil
}

// RecordHybrid feeds one finished extension run into the pattern for its
// project type. Missing validation counts as failure.
func (e *Engine) RecordHybrid(ctx context.Context, projectType string, strategy types.HybridStrategy, result *types.CreationResult) error {
	success := result != nil && result.Validation != nil && result.Validation.Success

	agents := []string{strategy.Analyzer, strategy.Creator, strategy.Integrator}
	initial := map[string]string{
		RoleAnalyzer:   strategy.Analyzer,
		RoleCreator:    strategy.Creator,
		RoleIntegrator: strategy.Integrator,
	}
	if err := e.update(ctx, types.TaskHybrid, projectType, agents, initial, success); err != nil {
		return err
	}

	if err := e.appendInteraction(ctx, types.TaskHybrid, projectType, strategy, result, success); err != nil {
		return err
	}
	e.ledger(ctx, projectType, success,
		ledgerEntry{strategy.Analyzer, "analysis"},
		ledgerEntry{strategy.Creator, "creation"},
		ledgerEntry{strategy.Integrator, "integration"})
	return nil
}

func (e *Engine) update(ctx context.Context, kind types.TaskKind, projectType string, agents []string, initialRoles map[string]string, success bool) error {
	e.mu.Lock()
	byType := e.patterns[kind]
	if byType == nil {
		byType = map[string]*types.LearnedPattern{}
		e.patterns[kind] = byType
	}
	p := byType[projectType]
	if p == nil {
		p = &types.LearnedPattern{
			Roles:            initialRoles,
			AgentPerformance: map[string]*types.AgentStats{},
		}
		byType[projectType] = p
	}

	p.Uses++
	s := 0.0
	if success {
		s = 1.0
	}
	p.SuccessRate = (p.SuccessRate*float64(p.Uses-1) + s) / float64(p.Uses)

	// Every agent in the strategy gets credited, duplicates included, so a
	// builder that is also the styler is counted twice per run.
	for _, agent := range agents {
		stats := p.AgentPerformance[agent]
		if stats == nil {
			stats = &types.AgentStats{}
			p.AgentPerformance[agent] = stats
			p.AgentOrder = append(p.AgentOrder, agent)
		}
		stats.Uses++
		if success {
			stats.Successes++
		}
	}

	if p.Uses >= reevaluateThreshold {
		reevaluate(p)
	}

	// The store marshals outside the lock, so it must get its own copy.
	// Handing it live pointers would let a concurrent update of another
	// kind mutate a pattern mid-marshal.
	snapshot := make(map[string]*types.LearnedPattern, len(byType))
	for k, v := range byType {
		snapshot[k] = clonePattern(v)
	}
	e.mu.Unlock()

	if e.store == nil {
		return nil
	}
	if err := e.store.SavePatterns(ctx, kind, snapshot); err != nil {
		return fmt.Errorf("save %s patterns: %w", kind, err)
	}
	return nil
}

func clonePattern(p *types.LearnedPattern) *types.LearnedPattern {
	if p == nil {
		return nil
	}
	out := &types.LearnedPattern{
		Roles:            make(map[string]string, len(p.Roles)),
		SuccessRate:      p.SuccessRate,
		Uses:             p.Uses,
		AgentPerformance: make(map[string]*types.AgentStats, len(p.AgentPerformance)),
		AgentOrder:       append([]string(nil), p.AgentOrder...),
	}
	for role, agent := range p.Roles {
		out.Roles[role] = agent
	}
	for agent, stats := range p.AgentPerformance {
		s := *stats
		out.AgentPerformance[agent] = &s
	}
	return out
}

// reevaluate re-picks the best agent per role. The incumbent only loses to
// a strictly better rate; among challengers the first-seen agent wins ties.
func reevaluate(p *types.LearnedPattern) {
	for role, incumbent := range p.Roles {
		best, bestRate := incumbent, 0.0
		for _, agent := range p.AgentOrder {
			stats := p.AgentPerformance[agent]
			rate := 0.0
			if stats.Uses > 0 {
				rate = float64(stats.Successes) / float64(stats.Uses)
			}
			if rate > bestRate {
				best, bestRate = agent, rate
			}
		}
		p.Roles[role] = best
	}
}

// BestCreationStrategy returns learned role assignments for projectType, or
// the fixed default when nothing has been learned yet.
func (e *Engine) BestCreationStrategy(projectType string) types.CreationStrategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p := e.patterns[types.TaskCreation][projectType]; p != nil {
		return types.CreationStrategy{
			Architect:  p.Roles[RoleArchitect],
			Builders:   []string{p.Roles[RoleBuilder]},
			Styler:     p.Roles[RoleStyler],
			Tester:     "deepseek-r1",
			Approach:   "learned",
			Confidence: p.SuccessRate,
		}
	}
	return types.CreationStrategy{
		Architect:  "qwen3-coder",
		Builders:   []string{"deepseek-v3"},
		Styler:     "deepseek-v3",
		Tester:     "deepseek-r1",
		Approach:   "default",
		Confidence: 0.5,
	}
}

// BestAnalysisStrategy returns learned role assignments for projectType, or
// the fixed default.
func (e *Engine) BestAnalysisStrategy(projectType string) types.AnalysisStrategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p := e.patterns[types.TaskAnalysis][projectType]; p != nil {
		return types.AnalysisStrategy{
			PrimaryAgent:    p.Roles[RoleDetector],
			SecondaryAgents: []string{p.Roles[RoleFixer]},
			Approach:        "learned",
			Confidence:      p.SuccessRate,
		}
	}
	return types.AnalysisStrategy{
		PrimaryAgent:    "deepseek-r1",
		SecondaryAgents: []string{"deepseek-v3"},
		Approach:        "default",
		Confidence:      0.5,
	}
}

// BestHybridStrategy returns learned role assignments for projectType, or
// the fixed default.
func (e *Engine) BestHybridStrategy(projectType string) types.HybridStrategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p := e.patterns[types.TaskHybrid][projectType]; p != nil {
		return types.HybridStrategy{
			Analyzer:   p.Roles[RoleAnalyzer],
			Creator:    p.Roles[RoleCreator],
			Integrator: p.Roles[RoleIntegrator],
			Approach:   "learned",
			Confidence: p.SuccessRate,
		}
	}
	return types.HybridStrategy{
		Analyzer:   "deepseek-r1",
		Creator:    "qwen3-coder",
		Integrator: "deepseek-v3",
		Approach:   "default",
		Confidence: 0.5,
	}
}

// TaskPerformance is the per task-kind slice of an agent's aggregate.
type TaskPerformance struct {
	Uses        int     `json:"uses"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"successRate"`
}

// AgentPerformance is the cross-pattern aggregate for one agent.
type AgentPerformance struct {
	Uses        int                                 `json:"uses"`
	Successes   int                                 `json:"successes"`
	SuccessRate float64                             `json:"successRate"`
	Tasks       map[types.TaskKind]*TaskPerformance `json:"tasks"`
}

// AggregateAgentPerformance folds every pattern's per-agent stats into one
// table keyed by agent id.
func (e *Engine) AggregateAgentPerformance() map[string]*AgentPerformance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := map[string]*AgentPerformance{}
	for kind, byType := range e.patterns {
		for _, p := range byType {
			for agent, stats := range p.AgentPerformance {
				agg := out[agent]
				if agg == nil {
					agg = &AgentPerformance{Tasks: map[types.TaskKind]*TaskPerformance{}}
					out[agent] = agg
				}
				agg.Uses += stats.Uses
				agg.Successes += stats.Successes
				tp := agg.Tasks[kind]
				if tp == nil {
					tp = &TaskPerformance{}
					agg.Tasks[kind] = tp
				}
				tp.Uses += stats.Uses
				tp.Successes += stats.Successes
			}
		}
	}
	for _, agg := range out {
		if agg.Uses > 0 {
			agg.SuccessRate = float64(agg.Successes) / float64(agg.Uses)
		}
		for _, tp := range agg.Tasks {
			if tp.Uses > 0 {
				tp.SuccessRate = float64(tp.Successes) / float64(tp.Uses)
			}
		}
	}
	return out
}

// Patterns returns a deep snapshot of the current pattern set. Callers
// may marshal or mutate it freely.
func (e *Engine) Patterns() types.PatternSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := types.PatternSet{}
	for kind, byType := range e.patterns {
		m := make(map[string]*types.LearnedPattern, len(byType))
		for k, v := range byType {
			m[k] = clonePattern(v)
		}
		out[kind] = m
	}
	return out
}

type ledgerEntry struct {
	agent    string
	taskType string
}

func (e *Engine) appendInteraction(ctx context.Context, kind types.TaskKind, projectType string, strategy, result any, success bool) error {
	if e.store == nil {
		return nil
	}
	in := types.Interaction{
		ID:          uuid.NewString(),
		Kind:        kind,
		ProjectType: projectType,
		Strategy:    strategy,
		Result:      result,
		Success:     success,
		Timestamp:   time.Now().UTC(),
	}
	if err := e.store.AppendInteraction(ctx, in); err != nil {
		return fmt.Errorf("append %s interaction: %w", kind, err)
	}
	return nil
}

// ledger bumps the per (agent, task type) counters. Failures here only get
// logged; the pattern update already happened.
func (e *Engine) ledger(ctx context.Context, projectType string, success bool, entries ...ledgerEntry) {
	if e.store == nil {
		return
	}
	for _, le := range entries {
		if le.agent == "" {
			continue
		}
		if err := e.store.IncrementAgentPerformance(ctx, le.agent, le.taskType, projectType, success); err != nil {
			e.log.WithError(err).WithField("agent", le.agent).Warn("agent performance update failed")
		}
	}
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}
