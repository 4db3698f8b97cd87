package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devforge/internal/agents"
	"devforge/internal/templates"
	"devforge/internal/types"
)

// PlannedComponent is one buildable unit derived from a feature.
type PlannedComponent struct {
	Name string `json:"name"`
	Type string `json:"type"` // component, style, api
}

// ProjectPlan is the structured breakdown a creation run executes.
type ProjectPlan struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Type         string             `json:"type"`
	Technologies []string           `json:"technologies"`
	Directories  []string           `json:"directories"`
	Components   []PlannedComponent `json:"components"`
	Features     []types.Feature    `json:"features"`
	Timeline     string             `json:"timeline"`
}

// CreationOutcome is the full result of a creation run.
type CreationOutcome struct {
	ProjectID  string                 `json:"projectId"`
	Plan       ProjectPlan            `json:"plan"`
	Strategy   types.CreationStrategy `json:"strategy"`
	Files      []types.ProjectFile    `json:"files"`
	Validation *types.Validation      `json:"validation"`
	Status     string                 `json:"status"` // success or failed
}

// CreateProgram builds a new project from requirements. Ambiguous
// requirements suspend the task behind a clarification request.
func (o *Orchestrator) CreateProgram(ctx context.Context, req *types.Requirements, projectContext *types.ProjectContext) (*Outcome, error) {
	interactionID := uuid.NewString()

	analysis := o.clarifier.AnalyzeRequirements(req)
	if analysis.NeedsClarification {
		record := types.ClarificationRequest{
			ID:                interactionID,
			Kind:              types.TaskCreation,
			Requirements:      req,
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
			Kind:          string(types.TaskCreation),
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

	outcome, err := o.runCreation(ctx, req)
	if err != nil {
		o.events.Publish(Event{Type: EventTaskFailed, Kind: string(types.TaskCreation), InteractionID: interactionID, Message: err.Error()})
		return nil, err
	}
	o.events.Publish(Event{
		Type:          EventTaskCompleted,
		Kind:          string(types.TaskCreation),
		InteractionID: interactionID,
		ProjectID:     outcome.ProjectID,
		ProjectType:   outcome.Plan.Type,
	})
	return &Outcome{
		InteractionID: interactionID,
		Confidence:    outcome.Strategy.Confidence,
		Creation:      outcome,
	}, nil
}

func (o *Orchestrator) runCreation(ctx context.Context, req *types.Requirements) (*CreationOutcome, error) {
	plan := planProject(req)
	strategy := o.planCreationStrategy(plan)

	o.log.WithFields(map[string]any{
		"projectType": plan.Type,
		"architect":   strategy.Architect,
		"approach":    strategy.Approach,
	}).Info("running creation")

	arch, err := o.agents.Create(ctx, strategy.Architect, agents.CreateOptions{
		Task:        "architecture",
		ProjectPlan: plan,
		ProjectType: plan.Type,
	})
	if err != nil {
		return nil, err
	}

	builders := strategy.Builders
	if len(builders) == 0 {
		builders = []string{strategy.Architect}
	}
	var generated []types.ProjectFile
	generated = append(generated, arch.Files...)
	for i, component := range plan.Components {
		builder := builders[i%len(builders)]
		out, err := o.agents.Create(ctx, builder, agents.CreateOptions{
			Task:         "component",
			Component:    component,
			ProjectType:  plan.Type,
			Architecture: arch.Architecture,
		})
		if err != nil {
			return nil, err
		}
		generated = append(generated, out.Files...)
	}

	styling, err := o.agents.Create(ctx, strategy.Styler, agents.CreateOptions{
		Task:        "styling",
		Components:  plan.Components,
		ProjectType: plan.Type,
	})
	if err != nil {
		return nil, err
	}
	generated = append(generated, styling.Files...)

	tests, err := o.agents.Create(ctx, strategy.Tester, agents.CreateOptions{
		Task:        "testing",
		Components:  plan.Components,
		ProjectType: plan.Type,
	})
	if err != nil {
		return nil, err
	}
	generated = append(generated, tests.Files...)

	scaffold := templates.BasicFiles(plan.Type, plan.Technologies)
	for _, tech := range plan.Technologies {
		scaffold = append(scaffold, o.templates.TechnologyFiles(tech)...)
	}
	files := mergeFiles(scaffold, generated)
	files = mergeFiles(files, []types.ProjectFile{readmeFor(plan, files)})

	validation, err := o.sandbox.ValidateProject(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("validate project: %w", err)
	}

	projectID := uuid.NewString()
	if o.artifacts != nil {
		if err := o.artifacts.SaveProject(ctx, projectID, files); err != nil {
			o.log.WithError(err).Warn("could not store project artifacts")
		}
	}
	if err := o.memory.PutProject(ctx, types.Project{
		ID:           projectID,
		Name:         plan.Name,
		Type:         plan.Type,
		Technologies: plan.Technologies,
		Features:     plan.Features,
		Files:        files,
		Validation:   validation,
		Timestamp:    time.Now().UTC(),
	}); err != nil {
		o.log.WithError(err).Warn("could not persist project snapshot")
	}

	result := &types.CreationResult{ProjectID: projectID, Files: files, Validation: validation}
	if err := o.learning.RecordCreation(ctx, plan.Type, strategy, result); err != nil {
		o.log.WithError(err).Warn("could not record creation outcome")
	}

	status := "failed"
	if validation != nil && validation.Success {
		status = "success"
	}
	return &CreationOutcome{
		ProjectID:  projectID,
		Plan:       plan,
		Strategy:   strategy,
		Files:      files,
		Validation: validation,
		Status:     status,
	}, nil
}

func planProject(req *types.Requirements) ProjectPlan {
	if req == nil {
		req = &types.Requirements{}
	}
	plan := ProjectPlan{
		Name:        req.Name,
		Description: req.Description,
		Type:        determineProjectTypeFromRequirements(req),
		Features:    req.Features,
		Timeline:    "medium",
	}
	if plan.Name == "" {
		plan.Name = "New Project"
	}
	if req.Timeline != nil && req.Timeline.Urgency != "" {
		plan.Timeline = req.Timeline.Urgency
	}

	if plan.Type == "web-app" {
		plan.Technologies = append(plan.Technologies, "html", "css", "javascript")
		switch req.Framework {
		case "react", "":
			plan.Technologies = append(plan.Technologies, "react")
		case "vue":
			plan.Technologies = append(plan.Technologies, "vue")
		case "angular":
			plan.Technologies = append(plan.Technologies, "angular")
		}
		switch req.Backend {
		case "node", "":
			plan.Technologies = append(plan.Technologies, "node", "express")
		case "python":
			plan.Technologies = append(plan.Technologies, "python", "flask")
		}
	}
	plan.Directories = templates.BasicDirectories(plan.Type)

	for _, feature := range plan.Features {
		plan.Components = append(plan.Components, breakDownFeature(feature, plan.Type)...)
	}
	return plan
}

func breakDownFeature(feature types.Feature, projectType string) []PlannedComponent {
	components := []PlannedComponent{
		{Name: feature.Name + "Component", Type: "component"},
	}
	if projectType == "web-app" {
		components = append(components, PlannedComponent{Name: feature.Name + "Style", Type: "style"})
	}
	desc := strings.ToLower(feature.Description)
	if strings.Contains(desc, "api") || strings.Contains(desc, "backend") {
		components = append(components, PlannedComponent{Name: feature.Name + "API", Type: "api"})
	}
	return components
}

func (o *Orchestrator) planCreationStrategy(plan ProjectPlan) types.CreationStrategy {
	strategy := o.learning.BestCreationStrategy(plan.Type)
	if strategy.Approach == "default" {
		switch plan.Type {
		case "web-app":
			strategy.Builders = []string{"deepseek-v3"}
		case "api":
			strategy.Builders = []string{"qwen3-coder"}
		case "mobile-app":
			strategy.Builders = []string{"deepseek-r1"}
		}
	}
	return strategy
}

// mergeFiles overlays generated files onto the scaffold; a generated file
// replaces a scaffold file at the same path.
func mergeFiles(base, overlay []types.ProjectFile) []types.ProjectFile {
	index := map[string]int{}
	out := make([]types.ProjectFile, 0, len(base)+len(overlay))
	for _, f := range base {
		index[f.Path] = len(out)
		out = append(out, f)
	}
	for _, f := range overlay {
		if f.Path == "" {
			continue
		}
		if i, ok := index[f.Path]; ok {
			out[i] = f
			continue
		}
		index[f.Path] = len(out)
		out = append(out, f)
	}
	return out
}

func readmeFor(plan ProjectPlan, files []types.ProjectFile) types.ProjectFile {
	var pkg struct {
		Dependencies map[string]string `json:"dependencies"`
		Scripts      map[string]string `json:"scripts"`
	}
	for _, f := range files {
		if f.Path == "package.json" {
			_ = json.Unmarshal([]byte(f.Content), &pkg)
			break
		}
	}
	return types.ProjectFile{
		Name:    "README.md",
		Path:    "README.md",
		Content: templates.ProjectReadme(plan.Name, plan.Description, pkg.Dependencies, pkg.Scripts, plan.Features),
	}
}
