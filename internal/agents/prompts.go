package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

func analysisPrompt(opts AnalyzeOptions) string {
	var b strings.Builder
	b.WriteString("You are an expert code analyst. Analyze the provided code for issues, patterns, and improvements.\n\n")
	if opts.FocusArea != "" {
		fmt.Fprintf(&b, "Focus area: %s\n\n", opts.FocusArea)
	}
	if len(opts.Files) > 0 {
		b.WriteString("Files to analyze:\n\n")
		for _, f := range opts.Files {
			fmt.Fprintf(&b, "File: %s\n", fileLabel(f.Name, f.Path))
			fmt.Fprintf(&b, "Content:\n```\n%s\n```\n\n", f.Content)
		}
	}
	if opts.Feature != nil {
		fmt.Fprintf(&b, "Feature to integrate: %s\n\n", mustJSON(opts.Feature))
	}
	if opts.Architecture != nil {
		fmt.Fprintf(&b, "Architecture context: %s\n\n", mustJSON(opts.Architecture))
	}
	if opts.Task != "" {
		fmt.Fprintf(&b, "Specific task: %s\n\n", opts.Task)
	}
	b.WriteString("Provide a detailed analysis with the following structure:\n")
	b.WriteString("1. Issues found (with file, line, severity, and description)\n")
	b.WriteString("2. Code patterns observed\n")
	b.WriteString("3. Metrics and measurements\n")
	b.WriteString("4. Recommendations for improvement\n\n")
	b.WriteString("Format your response as JSON with the following structure:\n")
	b.WriteString("{\n")
	b.WriteString(`  "issues": [{ "file": "path", "line": number, "severity": "critical|high|medium|low", "type": "security|performance|code-quality|accessibility", "message": "description" }],` + "\n")
	b.WriteString(`  "patterns": [{ "type": "pattern-type", "description": "description", "files": ["file1", "file2"] }],` + "\n")
	b.WriteString(`  "metrics": { "metric-name": value },` + "\n")
	b.WriteString(`  "recommendations": [{ "type": "recommendation-type", "description": "description", "priority": "high|medium|low" }]`)
	switch opts.Task {
	case "integration-points":
		b.WriteString(",\n" + `  "integrationPoints": [{ "type": "component|api|style", "location": "path", "description": "description" }]`)
	case "conflict-detection":
		b.WriteString(",\n" + `  "conflicts": [{ "file": "path", "line": number, "existingCode": "code", "newCode": "code", "description": "description" }]`)
	case "validate-integration":
		b.WriteString(",\n" + `  "validation": { "success": boolean, "errors": ["error1", "error2"], "warnings": ["warning1", "warning2"] }`)
	}
	b.WriteString("\n}\n")
	return b.String()
}

func creationPrompt(opts CreateOptions) string {
	var b strings.Builder
	b.WriteString("You are an expert code creator. Generate code based on the provided requirements.\n\n")
	if opts.Task != "" {
		fmt.Fprintf(&b, "Task: %s\n\n", opts.Task)
	}
	if opts.Component != nil {
		fmt.Fprintf(&b, "Component to create: %s\n\n", mustJSON(opts.Component))
	}
	if opts.ProjectType != "" {
		fmt.Fprintf(&b, "Project type: %s\n\n", opts.ProjectType)
	}
	if opts.Components != nil {
		fmt.Fprintf(&b, "Components to style: %s\n\n", mustJSON(opts.Components))
	}
	if len(opts.Issues) > 0 {
		fmt.Fprintf(&b, "Issues to fix: %s\n\n", mustJSON(opts.Issues))
	}
	if opts.Feature != nil {
		fmt.Fprintf(&b, "Feature to implement: %s\n\n", mustJSON(opts.Feature))
	}
	if len(opts.IntegrationPoints) > 0 {
		fmt.Fprintf(&b, "Integration points: %s\n\n", mustJSON(opts.IntegrationPoints))
	}
	if len(opts.Files) > 0 {
		b.WriteString("Existing files context:\n\n")
		for _, f := range opts.Files {
			fmt.Fprintf(&b, "File: %s\n", fileLabel(f.Name, f.Path))
			fmt.Fprintf(&b, "Content:\n```\n%s\n```\n\n", f.Content)
		}
	}
	if opts.Architecture != nil {
		fmt.Fprintf(&b, "Architecture context: %s\n\n", mustJSON(opts.Architecture))
	}
	if opts.ProjectPlan != nil {
		fmt.Fprintf(&b, "Project plan: %s\n\n", mustJSON(opts.ProjectPlan))
	}
	if len(opts.Conflicts) > 0 {
		fmt.Fprintf(&b, "Conflicts to resolve: %s\n\n", mustJSON(opts.Conflicts))
	}
	b.WriteString("Generate the required code and format your response as JSON with the following structure:\n")
	b.WriteString("{\n")
	switch opts.Task {
	case "component", "generate-files":
		b.WriteString(`  "files": [{ "path": "file-path", "content": "file-content" }]` + "\n")
	case "styling":
		b.WriteString(`  "files": [{ "path": "file-path", "content": "css-content" }]` + "\n")
	case "testing":
		b.WriteString(`  "files": [{ "path": "file-path", "content": "test-content" }]` + "\n")
	case "fix":
		b.WriteString(`  "fixes": [{ "file": "path", "line": number, "originalCode": "code", "fixedCode": "code", "description": "description" }]` + "\n")
	case "modify-files":
		b.WriteString(`  "modifiedFiles": [{ "path": "path", "content": "modified-content" }]` + "\n")
	case "resolve-conflicts":
		b.WriteString(`  "resolutions": [{ "file": "path", "line": number, "originalCode": "code", "resolvedCode": "code", "description": "description" }]` + "\n")
	case "architecture":
		b.WriteString(`  "architecture": { "structure": {...}, "components": [...] }` + "\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func fileLabel(name, path string) string {
	if name != "" {
		return name
	}
	return path
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
