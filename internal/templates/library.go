// Package templates holds the fixed project template catalog and the
// scaffold files a creation run starts from before agents fill in the
// generated components.
package templates

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"devforge/internal/types"
)

// Entry is a full template: catalog metadata plus the starter file tree.
type Entry struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Technologies []string            `json:"technologies"`
	Files        []types.ProjectFile `json:"files"`
	Directories  []string            `json:"directories"`
}

// Library is the fixed in-process template collection.
type Library struct {
	entries map[string]Entry
	tech    map[string][]types.ProjectFile
}

func NewLibrary() *Library {
	l := &Library{
		entries: map[string]Entry{},
		tech:    map[string][]types.ProjectFile{},
	}
	for _, e := range builtinTemplates {
		l.entries[e.ID] = e
	}
	for tech, files := range builtinTechnologyFiles {
		l.tech[tech] = files
	}
	return l
}

// Catalog lists template metadata in id order.
func (l *Library) Catalog() []types.Template {
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]types.Template, 0, len(ids))
	for _, id := range ids {
		e := l.entries[id]
		out = append(out, types.Template{
			ID:           e.ID,
			Name:         e.Name,
			Description:  e.Description,
			Technologies: e.Technologies,
		})
	}
	return out
}

// Get returns the full template for id, or false when unknown.
func (l *Library) Get(id string) (Entry, bool) {
	e, ok := l.entries[strings.TrimSpace(id)]
	return e, ok
}

// TechnologyFiles returns the example files bundled for one technology.
func (l *Library) TechnologyFiles(tech string) []types.ProjectFile {
	return l.tech[strings.ToLower(strings.TrimSpace(tech))]
}

// BasicDirectories is the directory skeleton used when no template
// matches the project type.
func BasicDirectories(projectType string) []string {
	switch projectType {
	case "web-app":
		return []string{"src", "src/components", "src/pages", "src/styles", "src/utils", "public"}
	case "api":
		return []string{"src", "src/routes", "src/middleware", "src/models", "src/controllers", "tests"}
	}
	return nil
}

// BasicFiles is the starter file set used when no template matches the
// project type: package.json, README, .gitignore and an entry point.
func BasicFiles(projectType string, technologies []string) []types.ProjectFile {
	files := []types.ProjectFile{
		{Name: "package.json", Path: "package.json", Content: PackageJSON(projectType, technologies)},
		{Name: "README.md", Path: "README.md", Content: basicReadme(projectType)},
		{Name: ".gitignore", Path: ".gitignore", Content: gitignore(projectType)},
	}
	switch projectType {
	case "web-app":
		files = append(files,
			types.ProjectFile{Name: "index.js", Path: "src/index.js", Content: webAppEntry(technologies)},
			types.ProjectFile{Name: "index.html", Path: "public/index.html", Content: htmlTemplate},
		)
	case "api":
		files = append(files,
			types.ProjectFile{Name: "index.js", Path: "src/index.js", Content: apiEntry(technologies)},
		)
	}
	return files
}

// PackageJSON renders a package.json for the chosen technologies.
func PackageJSON(projectType string, technologies []string) string {
	type pkg struct {
		Name            string            `json:"name"`
		Version         string            `json:"version"`
		Description     string            `json:"description"`
		Main            string            `json:"main"`
		Scripts         map[string]string `json:"scripts"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	p := pkg{
		Name:    "new-project",
		Version: "1.0.0",
		Main:    "src/index.js",
		Scripts: map[string]string{
			"start": "node src/index.js",
			"test":  `echo "Error: no test specified" && exit 1`,
		},
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}
	has := func(t string) bool {
		for _, v := range technologies {
			if v == t {
				return true
			}
		}
		return false
	}
	if has("react") {
		p.Dependencies["react"] = "^18.2.0"
		p.Dependencies["react-dom"] = "^18.2.0"
		p.DevDependencies["react-scripts"] = "^5.0.1"
		p.Scripts["start"] = "react-scripts start"
		p.Scripts["build"] = "react-scripts build"
		p.Scripts["test"] = "react-scripts test"
	}
	if has("express") {
		p.Dependencies["express"] = "^4.18.2"
	}
	if has("node") {
		p.DevDependencies["nodemon"] = "^3.0.1"
		p.Scripts["dev"] = "nodemon src/index.js"
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ProjectReadme renders the top-level README from the generated project's
// dependencies, scripts and features.
func ProjectReadme(name, description string, dependencies, scripts map[string]string, features []types.Feature) string {
	var b strings.Builder
	if name == "" {
		name = "Project"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if description != "" {
		fmt.Fprintf(&b, "## Description\n\n%s\n\n", description)
	}
	b.WriteString("## Technologies\n\n")
	deps := make([]string, 0, len(dependencies))
	for dep := range dependencies {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	for _, dep := range deps {
		fmt.Fprintf(&b, "- %s: %s\n", dep, dependencies[dep])
	}
	b.WriteString("\n")
	b.WriteString("## Getting Started\n\n")
	b.WriteString("1. Install dependencies:\n\n```bash\nnpm install\n```\n\n")
	if _, ok := scripts["start"]; ok {
		b.WriteString("2. Start the application:\n\n```bash\nnpm run start\n```\n\n")
	}
	if _, ok := scripts["test"]; ok {
		b.WriteString("3. Run tests:\n\n```bash\nnpm test\n```\n\n")
	}
	b.WriteString("## Features\n\n")
	for _, f := range features {
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Description)
	}
	return b.String()
}

func basicReadme(projectType string) string {
	var b strings.Builder
	b.WriteString("# New Project\n\n")
	switch projectType {
	case "web-app":
		b.WriteString("This is a web application built with modern JavaScript.\n\n")
		b.WriteString("## Getting Started\n\n")
		b.WriteString("1. Install dependencies:\n\n```bash\nnpm install\n```\n\n")
		b.WriteString("2. Start the development server:\n\n```bash\nnpm start\n```\n\n")
	case "api":
		b.WriteString("This is a RESTful API built with Node.js and Express.\n\n")
		b.WriteString("## Getting Started\n\n")
		b.WriteString("1. Install dependencies:\n\n```bash\nnpm install\n```\n\n")
		b.WriteString("2. Start the server:\n\n```bash\nnpm start\n```\n\n")
	}
	return b.String()
}

func gitignore(projectType string) string {
	var b strings.Builder
	b.WriteString("# Dependencies\n/node_modules\n\n")
	if projectType == "web-app" {
		b.WriteString("# Production builds\n/build\n/dist\n\n")
		b.WriteString("# Environment variables\n.env\n.env.local\n.env.development.local\n.env.test.local\n.env.production.local\n\n")
	}
	b.WriteString("# Logs\nnpm-debug.log*\nyarn-debug.log*\nyarn-error.log*\n\n")
	b.WriteString("# Runtime data\npids\n*.pid\n*.seed\n*.pid.lock\n\n")
	b.WriteString("# Coverage directory used by tools like istanbul\ncoverage\n\n")
	b.WriteString("# IDE\n.vscode/\n.idea/\n*.swp\n*.swo\n")
	return b.String()
}

func webAppEntry(technologies []string) string {
	for _, t := range technologies {
		if t == "react" {
			return `import React from 'react';
import ReactDOM from 'react-dom/client';
import App from './App';

const root = ReactDOM.createRoot(document.getElementById('root'));
root.render(
  <React.StrictMode>
    <App />
  </React.StrictMode>
);`
		}
	}
	return "// Main entry point for the web application\n\nconsole.log('Web application started');\n"
}

func apiEntry(technologies []string) string {
	for _, t := range technologies {
		if t == "express" {
			return `const express = require('express');
const app = express();
const port = process.env.PORT || 3000;

app.use(express.json());

app.get('/', (req, res) => {
  res.json({ message: 'Welcome to the API' });
});

app.listen(port, () => {
  console.log(` + "`Server running on port ${port}`" + `);
});`
		}
	}
	return "// Main entry point for the API\n\nconsole.log('API server started');\n"
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>New Project</title>
</head>
<body>
  <div id="root"></div>
</body>
</html>`
