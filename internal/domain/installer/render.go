package installer

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// templates is parsed once; missingkey=error turns a misspelled field into a render failure.
//
//nolint:gochecknoglobals // Parsed templates are immutable after init.
var templates = template.Must(
	template.New("installer").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"),
)

// Artifact is a rendered text file destined for the staging tree.
type Artifact struct {
	// Path is slash-separated and relative to the staging directory.
	Path string
	// Contents is the rendered file body.
	Contents []byte
	// Executable marks files that need the owner execute bit.
	Executable bool
}

// artifactTemplate binds a template to its location in the layout.
type artifactTemplate struct {
	template   string
	path       func(Layout) string
	executable bool
}

func artifactTemplates() []artifactTemplate {
	return []artifactTemplate{
		{template: "Info.plist.tmpl", path: func(l Layout) string { return l.InfoPlist }},
		{template: "path-entry.tmpl", path: func(l Layout) string { return l.PathEntry }},
		{template: "welcome.html.tmpl", path: func(l Layout) string { return l.Welcome }},
		{template: "distribution.xml.tmpl", path: func(l Layout) string { return l.Distribution }},
		{template: "build.sh.tmpl", path: func(l Layout) string { return l.BuildScript }, executable: true},
	}
}

// Render produces every generated artifact in a fixed order.
func Render(params Params) ([]Artifact, error) {
	defs := artifactTemplates()
	artifacts := make([]Artifact, 0, len(defs))

	for _, def := range defs {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, def.template, params); err != nil {
			return nil, fmt.Errorf("render %s: %w", def.template, err)
		}

		artifacts = append(artifacts, Artifact{
			Path:       def.path(params.Layout),
			Contents:   buf.Bytes(),
			Executable: def.executable,
		})
	}

	return artifacts, nil
}
