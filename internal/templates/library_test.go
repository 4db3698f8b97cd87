package templates

import (
	"strings"
	"testing"
)

func TestCatalogListsBuiltins(t *testing.T) {
	l := NewLibrary()
	catalog := l.Catalog()
	if len(catalog) != 3 {
		t.Fatalf("expected 3 templates, got %d", len(catalog))
	}
	ids := []string{catalog[0].ID, catalog[1].ID, catalog[2].ID}
	want := []string{"full-stack", "node-api", "react-app"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("catalog order %v, want %v", ids, want)
		}
	}
}

func TestGetTemplateFiles(t *testing.T) {
	l := NewLibrary()
	entry, ok := l.Get("react-app")
	if !ok {
		t.Fatal("react-app template missing")
	}
	var hasPackageJSON bool
	for _, f := range entry.Files {
		if f.Path == "package.json" {
			hasPackageJSON = true
		}
	}
	if !hasPackageJSON {
		t.Fatal("react-app template has no package.json")
	}
	if _, ok := l.Get("no-such"); ok {
		t.Fatal("unknown template should not resolve")
	}
}

func TestTechnologyFiles(t *testing.T) {
	l := NewLibrary()
	if len(l.TechnologyFiles("react")) == 0 {
		t.Fatal("react technology files missing")
	}
	if len(l.TechnologyFiles("cobol")) != 0 {
		t.Fatal("unexpected files for unknown technology")
	}
}

func TestPackageJSONReflectsTechnologies(t *testing.T) {
	content := PackageJSON("web-app", []string{"react", "node"})
	for _, want := range []string{`"react"`, `"react-scripts"`, `"nodemon"`, `"react-scripts start"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("package.json missing %s:\n%s", want, content)
		}
	}

	plain := PackageJSON("api", []string{"express"})
	if !strings.Contains(plain, `"express"`) {
		t.Fatalf("express dependency missing:\n%s", plain)
	}
	if strings.Contains(plain, "react") {
		t.Fatalf("unexpected react dependency:\n%s", plain)
	}
}

func TestBasicFilesPerProjectType(t *testing.T) {
	web := BasicFiles("web-app", []string{"react"})
	paths := map[string]bool{}
	for _, f := range web {
		paths[f.Path] = true
	}
	for _, want := range []string{"package.json", "README.md", ".gitignore", "src/index.js", "public/index.html"} {
		if !paths[want] {
			t.Fatalf("web-app scaffold missing %s", want)
		}
	}

	api := BasicFiles("api", []string{"express"})
	var entry string
	for _, f := range api {
		if f.Path == "src/index.js" {
			entry = f.Content
		}
	}
	if !strings.Contains(entry, "express") {
		t.Fatalf("api entry point does not use express:\n%s", entry)
	}
}

func TestProjectReadme(t *testing.T) {
	readme := ProjectReadme("Shop", "An online shop", map[string]string{"react": "^18.2.0"}, map[string]string{"start": "node src/index.js"}, nil)
	for _, want := range []string{"# Shop", "An online shop", "react: ^18.2.0", "npm install", "npm run start"} {
		if !strings.Contains(readme, want) {
			t.Fatalf("readme missing %q:\n%s", want, readme)
		}
	}
}
