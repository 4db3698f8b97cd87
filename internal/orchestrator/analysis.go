package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"devforge/internal/agents"
	"devforge/internal/types"
)

// Questions asked when an analysis request arrives without a stated focus.
var analysisClarificationQuestions = []string{
	"What specific aspects of the code should I focus on? (performance, security, code quality, etc.)",
	"Are there any particular areas of concern?",
	"What is the primary goal of this analysis?",
}

const analysisClarificationConfidence = 0.7

// AnalysisSummary is the aggregate view over a synthesized issue list.
type AnalysisSummary struct {
	TotalFiles      int `json:"totalFiles"`
	TotalIssues     int `json:"totalIssues"`
	CriticalIssues  int `json:"criticalIssues"`
	HighIssues      int `json:"highIssues"`
	MediumIssues    int `json:"mediumIssues"`
	LowIssues       int `json:"lowIssues"`
	FilesWithIssues int `json:"filesWithIssues"`
}

// AnalysisReport is the full result of an analysis run.
type AnalysisReport struct {
	ProjectType     string                   `json:"projectType"`
	Strategy        types.AnalysisStrategy   `json:"strategy"`
	Codebase        CodebaseAnalysis         `json:"codebase"`
	Summary         AnalysisSummary          `json:"summary"`
	Issues          []types.Issue            `json:"issues"`
	IssuesByFile    map[string][]types.Issue `json:"issuesByFile"`
	Patterns        []types.CodePattern      `json:"patterns,omitempty"`
	Recommendations []types.Recommendation   `json:"recommendations"`
	Fixes           []types.Fix              `json:"fixes,omitempty"`
}

// AnalyzeCode inspects an uploaded project. Without a stated analysis
// focus the task suspends behind a clarification request.
func (o *Orchestrator) AnalyzeCode(ctx context.Context, files []types.ProjectFile, projectContext *types.ProjectContext) (*Outcome, error) {
	interactionID := uuid.NewString()

	if projectContext == nil || strings.TrimSpace(projectContext.AnalysisFocus) == "" {
		req := types.ClarificationRequest{
			ID:             interactionID,
			Kind:           types.TaskAnalysis,
			Files:          files,
			ProjectContext: projectContext,
			Questions:      analysisClarificationQuestions,
			Timestamp:      time.Now().UTC(),
		}
		if err := o.memory.PutClarificationRequest(ctx, req); err != nil {
			return nil, fmt.Errorf("store clarification request: %w", err)
		}
		o.events.Publish(Event{
			Type:          EventClarificationRequested,
			Kind:          string(types.TaskAnalysis),
			InteractionID: interactionID,
			Questions:     req.Questions,
		})
		return &Outcome{
			InteractionID:      interactionID,
			NeedsClarification: true,
			Questions:          req.Questions,
			Confidence:         analysisClarificationConfidence,
		}, nil
	}

	report, err := o.runAnalysis(ctx, files, projectContext)
	if err != nil {
		o.events.Publish(Event{Type: EventTaskFailed, Kind: string(types.TaskAnalysis), InteractionID: interactionID, Message: err.Error()})
		return nil, err
	}
	o.events.Publish(Event{
		Type:          EventTaskCompleted,
		Kind:          string(types.TaskAnalysis),
		InteractionID: interactionID,
		ProjectType:   report.ProjectType,
	})
	return &Outcome{
		InteractionID: interactionID,
		Confidence:    report.Strategy.Confidence,
		Analysis:      report,
	}, nil
}

func (o *Orchestrator) runAnalysis(ctx context.Context, files []types.ProjectFile, projectContext *types.ProjectContext) (*AnalysisReport, error) {
	scan := scanCodebase(files)
	projectType := determineProjectType(scan)
	strategy := o.planAnalysisStrategy(scan, projectType, projectContext)

	o.log.WithFields(map[string]any{
		"projectType": projectType,
		"primary":     strategy.PrimaryAgent,
		"approach":    strategy.Approach,
	}).Info("running analysis")

	focus := "general"
	if len(strategy.FocusAreas) > 0 {
		focus = strings.Join(strategy.FocusAreas, ", ")
	}

	outputs := make([]*agents.AnalysisOutput, 0, 1+len(strategy.SecondaryAgents))
	primary, err := o.agents.Analyze(ctx, strategy.PrimaryAgent, agents.AnalyzeOptions{
		Files:     files,
		FocusArea: focus,
	})
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, primary)
	for _, agent := range strategy.SecondaryAgents {
		secondary, err := o.agents.Analyze(ctx, agent, agents.AnalyzeOptions{
			Files:     files,
			FocusArea: focus,
		})
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, secondary)
	}

	report := synthesizeAnalysis(outputs, files)
	report.ProjectType = projectType
	report.Strategy = strategy
	report.Codebase = scan

	fixes, err := o.generateFixes(ctx, report.Issues)
	if err != nil {
		return nil, err
	}
	report.Fixes = fixes

	result := &types.AnalysisResult{
		Issues:          report.Issues,
		Patterns:        report.Patterns,
		Recommendations: report.Recommendations,
		Fixes:           report.Fixes,
	}
	if err := o.learning.RecordAnalysis(ctx, projectType, strategy, result); err != nil {
		o.log.WithError(err).Warn("could not record analysis outcome")
	}
	return report, nil
}

func (o *Orchestrator) planAnalysisStrategy(scan CodebaseAnalysis, projectType string, projectContext *types.ProjectContext) types.AnalysisStrategy {
	strategy := types.AnalysisStrategy{
		PrimaryAgent: "deepseek-r1",
		Approach:     "comprehensive",
	}
	if containsAny(scan.Frameworks, "react", "vue", "angular") {
		strategy.PrimaryAgent = "qwen3-coder"
		strategy.FocusAreas = append(strategy.FocusAreas, "frontend-optimization")
	}
	if containsAny(scan.Frameworks, "express", "next") {
		strategy.PrimaryAgent = "deepseek-v3"
		strategy.FocusAreas = append(strategy.FocusAreas, "backend-performance")
	}
	if scan.Patterns.StateManagement != "unknown" {
		strategy.SecondaryAgents = append(strategy.SecondaryAgents, "deepseek-r1")
		strategy.FocusAreas = append(strategy.FocusAreas, "state-management")
	}
	if scan.Patterns.Testing != "unknown" {
		strategy.SecondaryAgents = append(strategy.SecondaryAgents, "deepseek-v3")
		strategy.FocusAreas = append(strategy.FocusAreas, "test-coverage")
	}
	if projectContext != nil && strings.TrimSpace(projectContext.AnalysisFocus) != "" {
		strategy.FocusAreas = append(strategy.FocusAreas, strings.TrimSpace(projectContext.AnalysisFocus))
	}

	best := o.learning.BestAnalysisStrategy(projectType)
	if best.Approach == "learned" {
		strategy.PrimaryAgent = best.PrimaryAgent
		strategy.SecondaryAgents = best.SecondaryAgents
		strategy.Approach = "learned"
	}
	strategy.Confidence = best.Confidence
	return strategy
}

func synthesizeAnalysis(outputs []*agents.AnalysisOutput, files []types.ProjectFile) *AnalysisReport {
	var issues []types.Issue
	var patterns []types.CodePattern
	var recommendations []types.Recommendation
	for _, out := range outputs {
		if out == nil {
			continue
		}
		issues = append(issues, out.Issues...)
		patterns = append(patterns, out.Patterns...)
		recommendations = append(recommendations, out.Recommendations...)
	}

	issues = dedupeIssues(issues)
	prioritizeIssues(issues)

	byFile := map[string][]types.Issue{}
	for _, issue := range issues {
		byFile[issue.File] = append(byFile[issue.File], issue)
	}

	report := &AnalysisReport{
		Issues:       issues,
		IssuesByFile: byFile,
		Patterns:     patterns,
		Summary: AnalysisSummary{
			TotalFiles:      len(files),
			TotalIssues:     len(issues),
			FilesWithIssues: len(byFile),
		},
	}
	for _, issue := range issues {
		switch issue.Severity {
		case "critical":
			report.Summary.CriticalIssues++
		case "high":
			report.Summary.HighIssues++
		case "medium":
			report.Summary.MediumIssues++
		case "low":
			report.Summary.LowIssues++
		}
	}
	report.Recommendations = append(recommendations, recommendationsFor(issues)...)
	return report
}

func dedupeIssues(issues []types.Issue) []types.Issue {
	seen := map[string]bool{}
	out := issues[:0]
	for _, issue := range issues {
		key := fmt.Sprintf("%s:%d:%s", issue.File, issue.Line, issue.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, issue)
	}
	return out
}

var severityRank = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

func prioritizeIssues(issues []types.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank[issues[i].Severity] < severityRank[issues[j].Severity]
	})
}

// recommendationsFor derives one recommendation per issue type, with a
// priority from the worst severity present and a rough effort estimate.
func recommendationsFor(issues []types.Issue) []types.Recommendation {
	byType := map[string][]types.Issue{}
	var order []string
	for _, issue := range issues {
		if _, ok := byType[issue.Type]; !ok {
			order = append(order, issue.Type)
		}
		byType[issue.Type] = append(byType[issue.Type], issue)
	}

	out := make([]types.Recommendation, 0, len(order))
	for _, issueType := range order {
		typeIssues := byType[issueType]
		seenFiles := map[string]bool{}
		var affected []string
		for _, issue := range typeIssues {
			if !seenFiles[issue.File] {
				seenFiles[issue.File] = true
				affected = append(affected, issue.File)
			}
		}
		out = append(out, types.Recommendation{
			Type:            issueType,
			Priority:        recommendationPriority(typeIssues),
			Description:     recommendationDescription(issueType, len(typeIssues)),
			AffectedFiles:   affected,
			EstimatedEffort: estimateEffort(typeIssues),
		})
	}
	return out
}

func recommendationPriority(issues []types.Issue) string {
	var critical, high int
	for _, issue := range issues {
		switch issue.Severity {
		case "critical":
			critical++
		case "high":
			high++
		}
	}
	if critical > 0 {
		return "critical"
	}
	if high > 0 {
		return "high"
	}
	return "medium"
}

func recommendationDescription(issueType string, count int) string {
	switch issueType {
	case "performance":
		return fmt.Sprintf("Optimize performance issues affecting %d locations", count)
	case "security":
		return fmt.Sprintf("Address security vulnerabilities in %d files", count)
	case "code-quality":
		return fmt.Sprintf("Improve code quality in %d locations", count)
	case "accessibility":
		return fmt.Sprintf("Fix accessibility issues in %d components", count)
	}
	return fmt.Sprintf("Resolve %s issues in %d locations", issueType, count)
}

func estimateEffort(issues []types.Issue) string {
	var effort float64
	for _, issue := range issues {
		switch issue.Severity {
		case "critical":
			effort += 3
		case "high":
			effort += 2
		case "medium":
			effort += 1
		case "low":
			effort += 0.5
		}
	}
	if effort < 2 {
		return "low"
	}
	if effort < 5 {
		return "medium"
	}
	return "high"
}

// generateFixes asks the best-suited agent per issue type for concrete
// fixes.
func (o *Orchestrator) generateFixes(ctx context.Context, issues []types.Issue) ([]types.Fix, error) {
	byType := map[string][]types.Issue{}
	var order []string
	for _, issue := range issues {
		if _, ok := byType[issue.Type]; !ok {
			order = append(order, issue.Type)
		}
		byType[issue.Type] = append(byType[issue.Type], issue)
	}

	var fixes []types.Fix
	for _, issueType := range order {
		out, err := o.agents.Create(ctx, agentForArea(issueType), agents.CreateOptions{
			Task:   "fix",
			Issues: byType[issueType],
		})
		if err != nil {
			return nil, err
		}
		fixes = append(fixes, out.Fixes...)
	}
	return fixes, nil
}

// agentForArea maps an analysis focus area or issue type to the agent best
// suited for it.
func agentForArea(area string) string {
	switch area {
	case "security", "state-management", "accessibility", "general":
		return "deepseek-r1"
	case "performance", "frontend-optimization":
		return "qwen3-coder"
	case "code-quality", "backend-performance", "test-coverage":
		return "deepseek-v3"
	}
	return "deepseek-r1"
}
