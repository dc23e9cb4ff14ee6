// Package config assembles runtime configuration from defaults, an optional
// YAML file and LEARNFAST_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/learnfast/internal/chunkcache"
	"github.com/abhisek/learnfast/internal/lessons"
	"github.com/abhisek/learnfast/internal/neo4jgraph"
	"github.com/abhisek/learnfast/internal/pathing"
	"github.com/abhisek/learnfast/internal/relevance"
	"github.com/abhisek/learnfast/internal/tracing"
)

const envPrefix = "LEARNFAST_"

// Graph backends.
const (
	GraphSQLite = "sqlite"
	GraphNeo4j  = "neo4j"
)

type Config struct {
	Store     StoreConfig       `yaml:"store"`
	Graph     GraphConfig       `yaml:"graph"`
	Neo4j     neo4jgraph.Config `yaml:"neo4j"`
	Cache     chunkcache.Config `yaml:"cache"`
	Relevance relevance.Config  `yaml:"relevance"`
	Resolver  ResolverConfig    `yaml:"resolver"`
	Assembler lessons.Config    `yaml:"assembler"`
	Log       LogConfig         `yaml:"log"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Tracing   tracing.Config    `yaml:"tracing"`
}

type StoreConfig struct {
	// Path is the SQLite file; empty resolves to the XDG data dir.
	Path string `yaml:"path"`
}

type GraphConfig struct {
	Backend string `yaml:"backend" validate:"oneof=sqlite neo4j"`
}

type ResolverConfig struct {
	Strategy   string `yaml:"strategy" validate:"omitempty,oneof=greedy exact auto prefix"`
	ExactLimit int    `yaml:"exact_limit" validate:"gte=1,lte=30"`
}

type LogConfig struct {
	Mode  string `yaml:"mode" validate:"oneof=dev prod development production"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

type MetricsConfig struct {
	// TextfilePath receives a Prometheus text exposition on exit.
	TextfilePath string `yaml:"textfile_path"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Graph:     GraphConfig{Backend: GraphSQLite},
		Neo4j:     neo4jgraph.DefaultConfig(),
		Cache:     chunkcache.DefaultConfig(),
		Relevance: relevance.DefaultConfig(),
		Resolver: ResolverConfig{
			Strategy:   string(pathing.StrategyGreedy),
			ExactLimit: pathing.DefaultExactLimit,
		},
		Assembler: lessons.DefaultConfig(),
		Log:       LogConfig{Mode: "dev", Level: "warn"},
		Tracing:   tracing.DefaultConfig(),
	}
}

// Load layers defaults, then the YAML file at path (if non-empty), then the
// environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// An empty file decodes to io.EOF; keep the defaults.
		if strings.TrimSpace(string(data)) == "" {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("DB", &c.Store.Path)
	str("GRAPH_BACKEND", &c.Graph.Backend)

	str("NEO4J_URI", &c.Neo4j.URI)
	str("NEO4J_USER", &c.Neo4j.User)
	str("NEO4J_PASSWORD", &c.Neo4j.Password)
	str("NEO4J_DATABASE", &c.Neo4j.Database)
	dur("NEO4J_TIMEOUT", &c.Neo4j.Timeout)

	flag("CACHE_ENABLED", &c.Cache.Enabled)
	str("CACHE_PATH", &c.Cache.Path)
	dur("CACHE_TTL", &c.Cache.TTL)

	str("RELEVANCE_PROVIDER", &c.Relevance.Provider)
	str("OPENAI_API_KEY", &c.Relevance.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.Relevance.OpenAI.Model)
	str("OPENAI_BASE_URL", &c.Relevance.OpenAI.BaseURL)
	dur("RELEVANCE_TIMEOUT", &c.Relevance.Timeout)

	str("PLAN_STRATEGY", &c.Resolver.Strategy)
	num("PLAN_EXACT_LIMIT", &c.Resolver.ExactLimit)

	var mode string
	str("ASSEMBLER_MODE", &mode)
	if mode != "" {
		c.Assembler.Mode = lessons.Mode(mode)
	}
	num("ASSEMBLER_CONCURRENCY", &c.Assembler.FetchConcurrency)

	str("LOG_MODE", &c.Log.Mode)
	str("LOG_LEVEL", &c.Log.Level)
	str("METRICS_FILE", &c.Metrics.TextfilePath)
	str("TRACE_EXPORTER", &c.Tracing.Exporter)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

var validate = validator.New()

// Validate checks struct tags and the cross-section rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Graph.Backend == GraphNeo4j && !c.Neo4j.Enabled() {
		return fmt.Errorf("invalid config: graph backend %q requires %sNEO4J_URI", GraphNeo4j, envPrefix)
	}
	if c.Relevance.Provider == "openai" && c.Relevance.OpenAI.APIKey == "" {
		return fmt.Errorf("invalid config: %sOPENAI_API_KEY is required for the openai relevance provider", envPrefix)
	}
	if c.Cache.Enabled && !c.Cache.InMemory && c.Cache.Path == "" {
		return fmt.Errorf("invalid config: cache.path is required when the cache is enabled")
	}
	return nil
}

// Strategy returns the parsed resolver strategy.
func (c Config) Strategy() pathing.Strategy {
	s, err := pathing.ParseStrategy(c.Resolver.Strategy)
	if err != nil {
		return pathing.StrategyGreedy
	}
	return s
}
