package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"devforge/internal/agents"
	"devforge/internal/types"
)

// ExtensionOutcome is the full result of an extension (hybrid) run.
type ExtensionOutcome struct {
	ProjectType       string                    `json:"projectType"`
	Strategy          types.HybridStrategy      `json:"strategy"`
	Architecture      ArchitectureAnalysis      `json:"architecture"`
	IntegrationPoints []agents.IntegrationPoint `json:"integrationPoints"`
	Conflicts         []agents.Conflict         `json:"conflicts,omitempty"`
	Resolutions       []agents.Resolution       `json:"resolutions,omitempty"`
	NewFiles          []types.ProjectFile       `json:"newFiles"`
	ModifiedFiles     []types.ProjectFile       `json:"modifiedFiles"`
	Files             []types.ProjectFile       `json:"files"`
	Validation        *types.Validation         `json:"validation"`
}

// ExtendProject adds the requested features to an existing project.
// Ambiguous requirements suspend the task behind a clarification request.
func (o *Orchestrator) ExtendProject(ctx context.Context, files []types.ProjectFile, req *types.Requirements, projectContext *types.ProjectContext) (*Outcome, error) {
	interactionID := uuid.NewString()

	analysis := o.clarifier.AnalyzeRequirements(req)
	if analysis.NeedsClarification {
		record := types.ClarificationRequest{
			ID:                interactionID,
			Kind:              types.TaskExtension,
			Requirements:      req,
			Files:             files,
			ProjectContext:    projectContext,
			Questions:         analysis.Questions,
			Ambiguities:       analysis.Ambiguities,
			ContextualMatches: analysis.ContextualMatches,
			Timestamp:         time.Now().UTC(),
		}
		if err := o.memory.PutClarificationRequest(ctx, record); err != nil {
			return nil, fmt.Errorf("store clarification request: %w", err)
		}
		o.events.Publish(Event{
			Type:          EventClarificationRequested,
			Kind:          string(types.TaskExtension),
			InteractionID: interactionID,
			Questions:     analysis.Questions,
		})
		return &Outcome{
			InteractionID:      interactionID,
			NeedsClarification: true,
			Questions:          analysis.Questions,
			Ambiguities:        analysis.Ambiguities,
			ContextualMatches:  analysis.ContextualMatches,
			Confidence:         analysis.Confidence,
		}, nil
	}

	outcome, err := o.runExtension(ctx, files, req)
	if err != nil {
		o.events.Publish(Event{Type: EventTaskFailed, Kind: string(types.TaskExtension), InteractionID: interactionID, Message: err.Error()})
		return nil, err
	}
	o.events.Publish(Event{
		Type:          EventTaskCompleted,
		Kind:          string(types.TaskExtension),
		InteractionID: interactionID,
		ProjectType:   outcome.ProjectType,
	})
	return &Outcome{
		InteractionID: interactionID,
		Confidence:    outcome.Strategy.Confidence,
		Extension:     outcome,
	}, nil
}

func (o *Orchestrator) runExtension(ctx context.Context, files []types.ProjectFile, req *types.Requirements) (*ExtensionOutcome, error) {
	arch := analyzeArchitecture(files)
	projectType := determineProjectType(arch.CodebaseAnalysis)
	if projectType == "unknown" {
		projectType = determineProjectTypeFromRequirements(req)
	}
	strategy := o.learning.BestHybridStrategy(projectType)

	o.log.WithFields(map[string]any{
		"projectType": projectType,
		"analyzer":    strategy.Analyzer,
		"approach":    strategy.Approach,
	}).Info("running extension")

	outcome := &ExtensionOutcome{
		ProjectType:  projectType,
		Strategy:     strategy,
		Architecture: arch,
	}

	var features []types.Feature
	if req != nil {
		features = req.Features
	}
	for i := range features {
		feature := &features[i]

		pointsOut, err := o.agents.Analyze(ctx, strategy.Analyzer, agents.AnalyzeOptions{
			Task:         "integration-points",
			Files:        files,
			Feature:      feature,
			Architecture: arch,
		})
		if err != nil {
			return nil, err
		}
		points := pointsOut.IntegrationPoints
		outcome.IntegrationPoints = append(outcome.IntegrationPoints, points...)

		conflictsOut, err := o.agents.Analyze(ctx, strategy.Creator, agents.AnalyzeOptions{
			Task:    "conflict-detection",
			Files:   files,
			Feature: feature,
		})
		if err != nil {
			return nil, err
		}
		outcome.Conflicts = append(outcome.Conflicts, conflictsOut.Conflicts...)

		created, err := o.agents.Create(ctx, strategy.Creator, agents.CreateOptions{
			Task:              "generate-files",
			Feature:           feature,
			IntegrationPoints: points,
		})
		if err != nil {
			return nil, err
		}
		outcome.NewFiles = append(outcome.NewFiles, created.Files...)

		modified, err := o.agents.Create(ctx, strategy.Integrator, agents.CreateOptions{
			Task:              "modify-files",
			Files:             files,
			Feature:           feature,
			IntegrationPoints: points,
		})
		if err != nil {
			return nil, err
		}
		outcome.ModifiedFiles = append(outcome.ModifiedFiles, modified.ModifiedFiles...)

		if len(conflictsOut.Conflicts) > 0 {
			resolved, err := o.agents.Create(ctx, strategy.Analyzer, agents.CreateOptions{
				Task:      "resolve-conflicts",
				Conflicts: conflictsOut.Conflicts,
				Files:     files,
				Feature:   feature,
			})
			if err != nil {
				return nil, err
			}
			outcome.Resolutions = append(outcome.Resolutions, resolved.Resolutions...)
		}
	}

	merged := mergeFiles(files, outcome.NewFiles)
	merged = applyModifications(merged, outcome.ModifiedFiles)
	outcome.Files = merged

	validation, err := o.sandbox.ValidateProject(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("validate project: %w", err)
	}
	outcome.Validation = validation

	result := &types.CreationResult{ProjectID: uuid.NewString(), Files: merged, Validation: validation}
	if err := o.learning.RecordHybrid(ctx, projectType, strategy, result); err != nil {
		o.log.WithError(err).Warn("could not record extension outcome")
	}
	return outcome, nil
}

// applyModifications rewrites files in place by path; modifications to
// unknown paths are dropped.
func applyModifications(files, modifications []types.ProjectFile) []types.ProjectFile {
	index := map[string]int{}
	for i, f := range files {
		index[f.Path] = i
	}
	for _, m := range modifications {
		if i, ok := index[m.Path]; ok {
			files[i].Content = m.Content
		}
	}
	return files
}
