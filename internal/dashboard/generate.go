// Package dashboard renders Grafana dashboards for the result tables and
// engine metrics.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

var templateFiles = []string{
	"templates/cascade-forecast.json.tmpl",
	"templates/cascade-engine.json.tmpl",
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// Datasource uids come from GREPTIMEDB_DATASOURCE_UID and
// PROMETHEUS_DATASOURCE_UID.
func Render(outDir string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tplName := range templateFiles {
		t, err := template.New(filepath.Base(tplName)).Funcs(funcMap).ParseFS(templates, tplName)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(tplName), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, nil); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", filepath.Base(tplName), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
