package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
knowledge_graph:
  url: http://localhost:8002
  timeout: 5s
  mode: expand
engine:
  workers: 4
  model:
    kind: neural
    seed: 7
output:
  greptime:
    host: localhost
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.KnowledgeGraph.URL != "http://localhost:8002" || cfg.KnowledgeGraph.Timeout != 5*time.Second {
		t.Errorf("unexpected knowledge graph config: %+v", cfg.KnowledgeGraph)
	}
	if cfg.KnowledgeGraph.MaxDepth != 3 || cfg.KnowledgeGraph.RetryAttempts != 3 {
		t.Errorf("defaults not kept: %+v", cfg.KnowledgeGraph)
	}
	if cfg.Engine.Workers != 4 || cfg.Engine.Model.Kind != "neural" || cfg.Engine.Model.Seed != 7 {
		t.Errorf("unexpected engine config: %+v", cfg.Engine)
	}
	if cfg.Output.Greptime.Port != 4001 || cfg.Server.Addr != ":8004" {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Output, cfg.Server)
	}
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	path := writeConfig(t, "knowledge_graph:\n  mode: sideways\n")
	if _, err := Load(path, ""); err == nil {
		t.Fatalf("expected schema error for unknown mode")
	}
	path = writeConfig(t, "engine:\n  threads: 3\n")
	if _, err := Load(path, ""); err == nil {
		t.Fatalf("expected schema error for unknown field")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("KNOWLEDGE_GRAPH_URL", "http://kg.internal:9000")
	t.Setenv("CASCADE_WORKERS", "12")
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.KnowledgeGraph.URL != "http://kg.internal:9000" || cfg.Engine.Workers != 12 || cfg.Log.Level != "debug" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("CASCADE_WORKERS", "many")
	if _, err := Load("", ""); err == nil {
		t.Fatalf("expected error for invalid CASCADE_WORKERS")
	}
}
