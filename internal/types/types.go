package types

import "time"

// Task kinds -----------------------------------------------------------------

// TaskKind identifies the workflow a request belongs to.
type TaskKind string

const (
	TaskCreation  TaskKind = "creation"
	TaskAnalysis  TaskKind = "analysis"
	TaskExtension TaskKind = "extension"
	TaskHybrid    TaskKind = "hybrid"
)

// Ambiguity is a detected gap in Requirements that needs a clarifying
// question before the task can proceed.
type Ambiguity string

const (
	AmbiguityMissingFeatures    Ambiguity = "missing-features"
	AmbiguityMissingTechStack   Ambiguity = "missing-tech-stack"
	AmbiguityMissingDesign      Ambiguity = "missing-design"
	AmbiguityMissingIntegration Ambiguity = "missing-integration"
	AmbiguityMissingData        Ambiguity = "missing-data"
	AmbiguityMissingUsers       Ambiguity = "missing-users"
	AmbiguityMissingDeployment  Ambiguity = "missing-deployment"
	AmbiguityMissingTimeline    Ambiguity = "missing-timeline"
)

// Requirements ----------------------------------------------------------------

// Feature is one named requirement item.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type DesignSpec struct {
	Preferences string `json:"preferences,omitempty"`
	Style       string `json:"style,omitempty"`
}

type DataModelSpec struct {
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"` // "sql" or "nosql"
}

type UserSpec struct {
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Scale       string   `json:"scale,omitempty"` // "small" or "large"
}

type DeploymentSpec struct {
	Preferences string `json:"preferences,omitempty"`
	Platform    string `json:"platform,omitempty"` // aws, azure, gcp, serverless
}

type TimelineSpec struct {
	Description string `json:"description,omitempty"`
	Urgency     string `json:"urgency,omitempty"` // high, medium, low
}

type PaymentSpec struct {
	Methods []string `json:"methods,omitempty"`
}

// Requirements is the incrementally populated description of what the user
// wants built. Absence of a field is what drives ambiguity detection; fields
// are only ever added or appended to, never removed.
type Requirements struct {
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"` // web-app, mobile-app, api
	Features    []Feature `json:"features,omitempty"`

	Framework    string          `json:"framework,omitempty"`
	Backend      string          `json:"backend,omitempty"`
	Design       *DesignSpec     `json:"design,omitempty"`
	Integrations []string        `json:"integrations,omitempty"`
	DataModel    *DataModelSpec  `json:"dataModel,omitempty"`
	Users        *UserSpec       `json:"users,omitempty"`
	Deployment   *DeploymentSpec `json:"deployment,omitempty"`
	Timeline     *TimelineSpec   `json:"timeline,omitempty"`

	// Contextual-domain fields populated from domain-specific answers.
	Payment           *PaymentSpec `json:"payment,omitempty"`
	InventoryRequired bool         `json:"inventoryRequired,omitempty"`
	AuthRequired      bool         `json:"authRequired,omitempty"`
	DashboardRequired bool         `json:"dashboardRequired,omitempty"`
	CMSRequired       bool         `json:"cmsRequired,omitempty"`
}

// ProjectContext carries analysis-side context supplied by the caller and
// refined through clarification.
type ProjectContext struct {
	Type          string `json:"type,omitempty"`
	AnalysisFocus string `json:"analysisFocus,omitempty"`
	Concerns      string `json:"concerns,omitempty"`
	AnalysisGoal  string `json:"analysisGoal,omitempty"`
}

// ProjectFile is one file of an uploaded or generated project tree.
type ProjectFile struct {
	Name    string `json:"name,omitempty"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Strategies ------------------------------------------------------------------

// CreationStrategy assigns agents to the roles of a creation run.
type CreationStrategy struct {
	Architect  string   `json:"architect"`
	Builders   []string `json:"builders"`
	Styler     string   `json:"styler"`
	Tester     string   `json:"tester,omitempty"`
	Approach   string   `json:"approach"` // "learned" or "default"
	Confidence float64  `json:"confidence"`
}

// AnalysisStrategy assigns agents to the roles of an analysis run.
type AnalysisStrategy struct {
	PrimaryAgent    string   `json:"primaryAgent"`
	SecondaryAgents []string `json:"secondaryAgents"`
	FocusAreas      []string `json:"focusAreas,omitempty"`
	Approach        string   `json:"approach"`
	Confidence      float64  `json:"confidence"`
}

// HybridStrategy assigns agents to the roles of an extension (hybrid) run.
type HybridStrategy struct {
	Analyzer   string  `json:"analyzer"`
	Creator    string  `json:"creator"`
	Integrator string  `json:"integrator"`
	Approach   string  `json:"approach"`
	Confidence float64 `json:"confidence"`
}

// Results ---------------------------------------------------------------------

// Validation is the sandbox verdict for a generated or extended project.
type Validation struct {
	Success  bool     `json:"success"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	URL      string   `json:"url,omitempty"`
}

type Issue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Severity string `json:"severity"` // critical, high, medium, low
	Type     string `json:"type"`     // security, performance, code-quality, accessibility
	Message  string `json:"message"`
}

type CodePattern struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Files       []string `json:"files,omitempty"`
}

type Recommendation struct {
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	Priority        string   `json:"priority"`
	AffectedFiles   []string `json:"affectedFiles,omitempty"`
	EstimatedEffort string   `json:"estimatedEffort,omitempty"`
}

type Fix struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	OriginalCode string `json:"originalCode"`
	FixedCode    string `json:"fixedCode"`
	Description  string `json:"description"`
}

// AnalysisResult is the combined output of an analysis run.
type AnalysisResult struct {
	Issues          []Issue          `json:"issues,omitempty"`
	Patterns        []CodePattern    `json:"patterns,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Fixes           []Fix            `json:"fixes,omitempty"`
}

// CreationResult is the combined output of a creation or extension run.
type CreationResult struct {
	ProjectID  string        `json:"projectId"`
	Files      []ProjectFile `json:"files"`
	Validation *Validation   `json:"validation,omitempty"`
}

// Learned patterns ------------------------------------------------------------

// AgentStats counts how often an agent took part in interactions for a
// pattern and how many of those interactions succeeded.
type AgentStats struct {
	Uses      int `json:"uses"`
	Successes int `json:"successes"`
}

// LearnedPattern is the persisted per (task kind, project type) record
// driving adaptive agent selection. Roles maps a role name (architect,
// builder, styler, detector, fixer, analyzer, creator, integrator) to the
// currently preferred agent id. AgentOrder preserves first-seen order so
// the re-selection tie-break stays deterministic across reloads.
type LearnedPattern struct {
	Roles            map[string]string      `json:"roles"`
	SuccessRate      float64                `json:"successRate"`
	Uses             int                    `json:"uses"`
	AgentPerformance map[string]*AgentStats `json:"agentPerformance"`
	AgentOrder       []string               `json:"agentOrder"`
}

// PatternSet groups learned patterns by task kind, then project type.
type PatternSet map[TaskKind]map[string]*LearnedPattern

// AgentPerformanceRecord is one ledger row, unique per
// (agent name, task type, project type).
type AgentPerformanceRecord struct {
	AgentName   string  `json:"agentName"`
	TaskType    string  `json:"taskType"`
	ProjectType string  `json:"projectType"`
	Uses        int     `json:"uses"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"successRate"`
}

// Clarification ---------------------------------------------------------------

// ClarificationRequest is a suspended task waiting for the user to answer
// the listed questions. It is consumed exactly once by a matching
// ClarificationResponse, or superseded by a follow-up request chained via
// OriginalInteractionID.
type ClarificationRequest struct {
	ID                    string          `json:"id"`
	Kind                  TaskKind        `json:"kind"`
	OriginalInteractionID string          `json:"originalInteractionId,omitempty"`
	Requirements          *Requirements   `json:"requirements,omitempty"`
	Files                 []ProjectFile   `json:"files,omitempty"`
	ProjectContext        *ProjectContext `json:"projectContext,omitempty"`
	Questions             []string        `json:"questions"`
	Ambiguities           []Ambiguity     `json:"ambiguities,omitempty"`
	ContextualMatches     []string        `json:"contextualMatches,omitempty"`
	IsFollowUp            bool            `json:"isFollowUp,omitempty"`
	Timestamp             time.Time       `json:"timestamp"`
}

// ClarificationResponse records the answers given for one interaction id
// together with the requirements snapshot they produced. Write-once per
// interaction id; retries overwrite.
type ClarificationResponse struct {
	InteractionID         string          `json:"interactionId"`
	Responses             []string        `json:"responses"`
	UpdatedRequirements   *Requirements   `json:"updatedRequirements,omitempty"`
	UpdatedProjectContext *ProjectContext `json:"updatedProjectContext,omitempty"`
	Timestamp             time.Time       `json:"timestamp"`
}

// ClarificationExchange is a request joined with its response, as returned
// by the clarification history query.
type ClarificationExchange struct {
	InteractionID       string        `json:"interactionId"`
	Questions           []string      `json:"questions"`
	Ambiguities         []Ambiguity   `json:"ambiguities,omitempty"`
	ContextualMatches   []string      `json:"contextualMatches,omitempty"`
	Responses           []string      `json:"responses,omitempty"`
	UpdatedRequirements *Requirements `json:"updatedRequirements,omitempty"`
	Timestamp           time.Time     `json:"timestamp"`
}

// Persistence rows ------------------------------------------------------------

// Project is the persisted snapshot of a generated project. Upserted by id.
type Project struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Technologies []string      `json:"technologies,omitempty"`
	Features     []Feature     `json:"features,omitempty"`
	Files        []ProjectFile `json:"files,omitempty"`
	Validation   *Validation   `json:"validation,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Interaction is one recorded task outcome used as learning input.
type Interaction struct {
	ID          string    `json:"id"`
	Kind        TaskKind  `json:"kind"`
	ProjectType string    `json:"projectType"`
	Strategy    any       `json:"strategy,omitempty"`
	Result      any       `json:"result,omitempty"`
	Success     bool      `json:"success"`
	Timestamp   time.Time `json:"timestamp"`
}

// Template is one entry of the fixed project template catalog.
type Template struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}
