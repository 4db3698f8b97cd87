package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"

	"devforge/internal/types"
)

// CodebaseAnalysis is the heuristic scan of an uploaded project tree used
// to pick analysis strategies.
type CodebaseAnalysis struct {
	FileTypes    []string          `json:"fileTypes"`
	Dependencies map[string]string `json:"dependencies"`
	Frameworks   []string          `json:"frameworks"`
	Patterns     CodebasePatterns  `json:"patterns"`
	FileCount    int               `json:"fileCount"`
}

// CodebasePatterns classifies the conventions a codebase follows.
// "unknown" means no signal was found.
type CodebasePatterns struct {
	Architecture    string `json:"architecture"`
	Styling         string `json:"styling"`
	StateManagement string `json:"stateManagement"`
	Testing         string `json:"testing"`
}

// ArchitectureAnalysis extends the codebase scan with the structural
// detail an extension run plans against.
type ArchitectureAnalysis struct {
	CodebaseAnalysis
	EntryPoints        []string                 `json:"entryPoints"`
	DataFlow           DataFlow                 `json:"dataFlow"`
	ComponentHierarchy map[string]ComponentNode `json:"componentHierarchy"`
	APIEndpoints       []APIEndpoint            `json:"apiEndpoints"`
}

type DataFlow struct {
	Sources         []string `json:"sources"`
	Transformations []string `json:"transformations"`
	Sinks           []string `json:"sinks"`
}

type ComponentNode struct {
	Path     string   `json:"path"`
	Children []string `json:"children"`
}

type APIEndpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	File   string `json:"file"`
}

func scanCodebase(files []types.ProjectFile) CodebaseAnalysis {
	analysis := CodebaseAnalysis{
		Dependencies: map[string]string{},
		Patterns: CodebasePatterns{
			Architecture:    "unknown",
			Styling:         "unknown",
			StateManagement: "unknown",
			Testing:         "unknown",
		},
		FileCount: len(files),
	}

	extCounts := map[string]int{}
	for _, f := range files {
		ext := fileExt(f.Name)
		if ext != "" {
			extCounts[ext]++
		}

		if ext == "json" && strings.Contains(f.Name, "package.json") {
			var pkg struct {
				Dependencies map[string]string `json:"dependencies"`
			}
			if err := json.Unmarshal([]byte(f.Content), &pkg); err == nil {
				for dep, version := range pkg.Dependencies {
					analysis.Dependencies[dep] = version
				}
				for _, fw := range []string{"react", "vue", "angular", "express", "next"} {
					if _, ok := pkg.Dependencies[fw]; ok {
						analysis.Frameworks = append(analysis.Frameworks, fw)
					}
				}
			}
		}

		content := f.Content
		if strings.Contains(content, "import React") || strings.Contains(content, `from "react"`) {
			analysis.Patterns.Architecture = "react"
		}
		if strings.Contains(content, "import Vue") || strings.Contains(content, `from "vue"`) {
			analysis.Patterns.Architecture = "vue"
		}
		if strings.Contains(content, "useState") || strings.Contains(content, "useEffect") {
			analysis.Patterns.StateManagement = "react-hooks"
		}
		if strings.Contains(content, "Redux") || strings.Contains(content, "redux") {
			analysis.Patterns.StateManagement = "redux"
		}
		if strings.Contains(content, "Vuex") {
			analysis.Patterns.StateManagement = "vuex"
		}
		if strings.Contains(content, ".css") || strings.Contains(content, ".scss") || strings.Contains(content, ".less") {
			analysis.Patterns.Styling = "css"
		}
		if strings.Contains(content, "styled-components") || strings.Contains(content, "emotion") {
			analysis.Patterns.Styling = "css-in-js"
		}
		if strings.Contains(content, "jest") || strings.Contains(content, "mocha") || strings.Contains(content, "cypress") {
			analysis.Patterns.Testing = "unit"
		}
	}

	for ext := range extCounts {
		analysis.FileTypes = append(analysis.FileTypes, ext)
	}
	return analysis
}

func analyzeArchitecture(files []types.ProjectFile) ArchitectureAnalysis {
	arch := ArchitectureAnalysis{
		CodebaseAnalysis:   scanCodebase(files),
		ComponentHierarchy: map[string]ComponentNode{},
	}

	for _, f := range files {
		if f.Name == "index.js" || f.Name == "main.js" || f.Name == "app.js" {
			arch.EntryPoints = append(arch.EntryPoints, f.Path)
		} else if strings.Contains(f.Content, "ReactDOM.render") || strings.Contains(f.Content, "createRoot") {
			arch.EntryPoints = append(arch.EntryPoints, f.Path)
		}

		if strings.Contains(f.Content, "fetch(") || strings.Contains(f.Content, "axios.") {
			arch.DataFlow.Sources = append(arch.DataFlow.Sources, f.Path)
		}
		if strings.Contains(f.Content, "map(") || strings.Contains(f.Content, "filter(") {
			arch.DataFlow.Transformations = append(arch.DataFlow.Transformations, f.Path)
		}
		if strings.Contains(f.Content, "setState") || strings.Contains(f.Content, "useState") {
			arch.DataFlow.Sinks = append(arch.DataFlow.Sinks, f.Path)
		}

		if strings.Contains(f.Path, "components") || strings.Contains(f.Path, "pages") {
			name := componentFileRe.ReplaceAllString(f.Name, "")
			arch.ComponentHierarchy[name] = ComponentNode{Path: f.Path, Children: []string{}}
		}

		if strings.Contains(f.Path, "routes") || strings.Contains(f.Path, "api") {
			for _, m := range expressRouteRe.FindAllStringSubmatch(f.Content, -1) {
				arch.APIEndpoints = append(arch.APIEndpoints, APIEndpoint{
					Method: strings.ToUpper(m[1]),
					Path:   m[2],
					File:   f.Path,
				})
			}
		}
	}
	return arch
}

var (
	componentFileRe = regexp.MustCompile(`\.(js|jsx|ts|tsx)$`)
	expressRouteRe  = regexp.MustCompile("app\\.(get|post|put|delete)\\(['\"`]([^'\"`]+)['\"`]")
)

// determineProjectType infers a project type from a codebase scan.
func determineProjectType(analysis CodebaseAnalysis) string {
	if containsAny(analysis.Frameworks, "react", "vue", "angular") {
		return "web-app"
	}
	if containsAny(analysis.Frameworks, "express", "next") {
		return "api"
	}
	if containsAny(analysis.FileTypes, "java", "kt") {
		return "mobile-app"
	}
	return "unknown"
}

// determineProjectTypeFromRequirements infers a project type from stated
// requirements, defaulting to web-app.
func determineProjectTypeFromRequirements(req *types.Requirements) string {
	if req == nil {
		return "web-app"
	}
	if req.Type != "" {
		return req.Type
	}
	switch req.Framework {
	case "react", "vue", "angular":
		return "web-app"
	}
	switch req.Backend {
	case "node", "python":
		return "api"
	}
	return "web-app"
}

func fileExt(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

func containsAny(haystack []string, needles ...string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
