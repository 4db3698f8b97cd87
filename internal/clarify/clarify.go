// Package clarify detects gaps in project requirements and turns user
// answers back into structured requirement fields.
package clarify

import (
	"sort"
	"strings"

	"devforge/internal/types"
)

// Analysis is the outcome of one ambiguity scan over a Requirements value.
type Analysis struct {
	NeedsClarification bool              `json:"needsClarification"`
	Questions          []string          `json:"questions"`
	Ambiguities        []types.Ambiguity `json:"ambiguities"`
	ContextualMatches  []string          `json:"contextualMatches"`
	Confidence         float64           `json:"confidence"`
}

// ambiguityQuestions maps each ambiguity to its fixed question set.
var ambiguityQuestions = map[types.Ambiguity][]string{
	types.AmbiguityMissingFeatures: {
		"What specific features should the app have?",
		"Can you list the main functionalities you need?",
		"What are the core user journeys?",
	},
	types.AmbiguityMissingTechStack: {
		"Do you have a preferred technology stack?",
		"Are there any specific frameworks or libraries you'd like to use?",
		"Any constraints on technologies we should use?",
	},
	types.AmbiguityMissingDesign: {
		"Do you have any design preferences or mockups?",
		"What style or theme are you looking for?",
		"Are there any brand guidelines we should follow?",
	},
	types.AmbiguityMissingIntegration: {
		"What systems or services should this integrate with?",
		"Are there any third-party APIs we need to connect to?",
		"Do you have authentication requirements?",
	},
	types.AmbiguityMissingData: {
		"What kind of data will the application handle?",
		"Do you have a preferred database solution?",
		"Are there any data privacy requirements?",
	},
	types.AmbiguityMissingUsers: {
		"Who are the target users for this application?",
		"How many users do you expect?",
		"What are the user roles and permissions?",
	},
	types.AmbiguityMissingDeployment: {
		"Where do you plan to deploy this application?",
		"Do you have any hosting preferences?",
		"Are there any scalability requirements?",
	},
	types.AmbiguityMissingTimeline: {
		"What is your timeline for this project?",
		"Are there any critical deadlines?",
		"Is this a phased rollout or all at once?",
	},
}

type contextualPattern struct {
	name      string
	keywords  []string
	questions []string
}

// contextualPatterns fire domain-specific questions when at least two of
// their keywords appear in the requirement text. Order matters for the
// question list the caller sees.
var contextualPatterns = []contextualPattern{
	{
		name:     "e-commerce",
		keywords: []string{"shop", "store", "cart", "checkout", "payment", "product"},
		questions: []string{
			"What payment methods do you need to support?",
			"Do you need inventory management?",
			"Are there any tax or shipping requirements?",
		},
	},
	{
		name:     "social-media",
		keywords: []string{"social", "profile", "post", "comment", "like", "share"},
		questions: []string{
			"Do you need user profiles and authentication?",
			"What social features are most important?",
			"Do you need content moderation capabilities?",
		},
	},
	{
		name:     "dashboard",
		keywords: []string{"dashboard", "analytics", "metrics", "charts", "data visualization"},
		questions: []string{
			"What data sources will the dashboard connect to?",
			"What types of visualizations do you need?",
			"Do you need real-time data updates?",
		},
	},
	{
		name:     "blog",
		keywords: []string{"blog", "article", "post", "content", "cms"},
		questions: []string{
			"Do you need a content management system?",
			"Will there be multiple authors?",
			"Do you need commenting functionality?",
		},
	},
}

// questionPriority is the canonical ordering for the lead question of each
// ambiguity. Questions not listed here keep their relative order after the
// listed ones.
var questionPriority = []string{
	"What specific features should the app have?",
	"Do you have a preferred technology stack?",
	"What kind of data will the application handle?",
	"Who are the target users for this application?",
	"What systems or services should this integrate with?",
	"Do you have any design preferences or mockups?",
	"Where do you plan to deploy this application?",
	"What is your timeline for this project?",
}

// Engine is stateless; a single value can be shared across goroutines.
type Engine struct{}

func New() *Engine { return &Engine{} }

// AnalyzeRequirements scans req for missing fields and contextual domain
// hits and returns the prioritized question list. It never mutates req.
func (e *Engine) AnalyzeRequirements(req *types.Requirements) Analysis {
	if req == nil {
		req = &types.Requirements{}
	}

	var ambiguities []types.Ambiguity
	if len(req.Features) == 0 {
		ambiguities = append(ambiguities, types.AmbiguityMissingFeatures)
	}
	if req.Framework == "" && req.Backend == "" {
		ambiguities = append(ambiguities, types.AmbiguityMissingTechStack)
	}
	if (req.Type == "web-app" || req.Type == "mobile-app") && req.Design == nil {
		ambiguities = append(ambiguities, types.AmbiguityMissingDesign)
	}
	if desc := req.Description; strings.Contains(desc, "integrate") || strings.Contains(desc, "connect") {
		if len(req.Integrations) == 0 {
			ambiguities = append(ambiguities, types.AmbiguityMissingIntegration)
		}
	}
	if (req.Type == "web-app" || req.Type == "api") && req.DataModel == nil {
		ambiguities = append(ambiguities, types.AmbiguityMissingData)
	}
	if req.Users == nil {
		ambiguities = append(ambiguities, types.AmbiguityMissingUsers)
	}
	if req.Deployment == nil {
		ambiguities = append(ambiguities, types.AmbiguityMissingDeployment)
	}
	if req.Timeline == nil {
		ambiguities = append(ambiguities, types.AmbiguityMissingTimeline)
	}

	var questions []string
	for _, amb := range ambiguities {
		questions = append(questions, ambiguityQuestions[amb]...)
	}

	allText := requirementText(req)
	var matches []string
	for _, cp := range contextualPatterns {
		hits := 0
		for _, kw := range cp.keywords {
			if strings.Contains(allText, kw) {
				hits++
			}
		}
		if hits >= 2 {
			questions = append(questions, cp.questions...)
		}
		if hits >= 1 {
			matches = append(matches, cp.name)
		}
	}

	questions = PrioritizeQuestions(questions)

	return Analysis{
		NeedsClarification: len(questions) > 0,
		Questions:          questions,
		Ambiguities:        ambiguities,
		ContextualMatches:  matches,
		Confidence:         Confidence(len(ambiguities), len(matches)),
	}
}

// Confidence scores how well-specified the requirements are. Each open
// ambiguity costs 0.1, each recognized domain adds 0.05 back.
func Confidence(ambiguities, contextualMatches int) float64 {
	c := 1.0 - 0.1*float64(ambiguities) + 0.05*float64(contextualMatches)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// PrioritizeQuestions orders questions by the canonical priority list,
// keeping unknown questions after the known ones in their original relative
// order, and drops duplicates.
func PrioritizeQuestions(questions []string) []string {
	rank := make(map[string]int, len(questionPriority))
	for i, q := range questionPriority {
		rank[q] = i
	}

	out := make([]string, 0, len(questions))
	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

func requirementText(req *types.Requirements) string {
	parts := []string{req.Name, req.Description}
	for _, f := range req.Features {
		parts = append(parts, f.Name+" "+f.Description)
	}
	parts = append(parts, req.Type)
	return strings.ToLower(strings.Join(parts, " "))
}
