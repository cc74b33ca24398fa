// Package dashboard renders a Grafana dashboard over the GreptimeDB
// geofence event table.
package dashboard

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Params fills the dashboard template.
type Params struct {
	DatasourceUID string
	Table         string
	Title         string
}

// ParamsFromEnv reads the datasource UID from GREPTIMEDB_DATASOURCE_UID.
func ParamsFromEnv(table string) (Params, error) {
	uid := os.Getenv("GREPTIMEDB_DATASOURCE_UID")
	if uid == "" {
		return Params{}, errors.New("environment variable GREPTIMEDB_DATASOURCE_UID not set")
	}
	return Params{DatasourceUID: uid, Table: table, Title: "Geofence events"}, nil
}

// Render executes every embedded template and writes the dashboards to
// outDir, returning the written paths.
func Render(outDir string, p Params) ([]string, error) {
	if p.DatasourceUID == "" || p.Table == "" {
		return nil, errors.New("dashboard needs a datasource UID and a table")
	}
	if p.Title == "" {
		p.Title = "Geofence events"
	}
	funcMap := template.FuncMap{
		// json string escaping for values placed inside quotes
		"js": func(s string) string {
			r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
			return r.Replace(s)
		},
	}
	t, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, tpl := range t.Templates() {
		name := tpl.Name()
		if !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return written, err
		}
		if err := tpl.Execute(f, p); err != nil {
			f.Close()
			return written, fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
