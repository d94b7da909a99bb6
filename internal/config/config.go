// YAML service configuration with CUE validation and environment overrides
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// KnowledgeGraph configures the graph provider client.
type KnowledgeGraph struct {
	URL             string        `yaml:"url"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxDepth        int           `yaml:"max_depth"`
	Mode            string        `yaml:"mode"`
	RateLimit       float64       `yaml:"rate_limit"`
	Burst           int           `yaml:"burst"`
	RetryAttempts   uint          `yaml:"retry_attempts"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
}

// Model selects the learned propagation model.
type Model struct {
	Kind     string  `yaml:"kind"`
	Seed     uint64  `yaml:"seed"`
	Constant float64 `yaml:"constant"`
}

// Engine tunes the Monte Carlo orchestrator.
type Engine struct {
	Workers          int   `yaml:"workers"`
	ProgressInterval int   `yaml:"progress_interval"`
	Model            Model `yaml:"model"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Greptime configures the GreptimeDB result sink. An empty host disables it.
type Greptime struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// Output configures result writers.
type Output struct {
	Greptime Greptime `yaml:"greptime"`
	LogFile  string   `yaml:"log_file"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level"`
}

// Config is the root service configuration.
type Config struct {
	KnowledgeGraph KnowledgeGraph `yaml:"knowledge_graph"`
	// GraphFile, when set, replaces the knowledge graph with a static YAML graph.
	GraphFile string `yaml:"graph_file"`
	Engine    Engine `yaml:"engine"`
	Server    Server `yaml:"server"`
	Output    Output `yaml:"output"`
	Log       Log    `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		KnowledgeGraph: KnowledgeGraph{
			URL:             "http://knowledge-graph:8002",
			Timeout:         30 * time.Second,
			MaxDepth:        3,
			Mode:            "radius",
			RateLimit:       50,
			Burst:           10,
			RetryAttempts:   3,
			BreakerFailures: 5,
		},
		Engine: Engine{
			ProgressInterval: 100,
			Model:            Model{Kind: "constant", Constant: 1.0},
		},
		Server: Server{Addr: ":8004"},
		Output: Output{Greptime: Greptime{Port: 4001, Database: "public"}},
		Log:    Log{Level: "info"},
	}
}

// Load reads the YAML file at configPath, validates it against the CUE
// schema at schemaPath (the embedded schema when empty), decodes it over
// Default and applies environment overrides. An empty configPath yields
// the defaults with overrides.
func Load(configPath, schemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := ValidateWithCue(data, schemaPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("KNOWLEDGE_GRAPH_URL"); v != "" {
		c.KnowledgeGraph.URL = v
	}
	if v := os.Getenv("GREPTIMEDB_HOST"); v != "" {
		c.Output.Greptime.Host = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Output.Greptime.Database = v
	}
	if v := os.Getenv("CASCADE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("CASCADE_WORKERS: invalid worker count %q", v)
		}
		c.Engine.Workers = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}
