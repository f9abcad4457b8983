package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration: server settings, arena
// tunables, the decision backend choice, and optional persistence.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Arena    ArenaConfig    `yaml:"arena"`
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Dev      DevConfig      `yaml:"dev"`
}

// ServerConfig holds process-level HTTP/WS settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Host        string   `yaml:"host"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// ArenaConfig holds the tunables enumerated for the battle-royale world.
type ArenaConfig struct {
	GridSize            int           `yaml:"grid_size"`
	AgentCount          int           `yaml:"agent_count"`
	TickInterval        time.Duration `yaml:"tick_interval"`
	VotingWindow        time.Duration `yaml:"voting_window"`
	ShrinkIntervalTicks int           `yaml:"shrink_interval_ticks"`
	ObstacleDensity     float64       `yaml:"obstacle_density"`
	ObstacleSeed        int64         `yaml:"obstacle_seed"`
	VisionRange         int           `yaml:"vision_range"`
	MinBorder           int           `yaml:"min_border"`
	Backend             string        `yaml:"backend"` // "rule-based" or "llm"
	ThinkingStorage     string        `yaml:"thinking_storage"` // "in-memory" or "null"
}

// LLMConfig configures the optional remote decision backend.
type LLMConfig struct {
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrency int64         `yaml:"max_concurrency"`
	Temperature    float64       `yaml:"temperature"`
	APIKey         string        `yaml:"-"` // from environment, never in YAML
}

// DatabaseConfig configures optional Postgres event-log and Redis
// snapshot-cache persistence; empty URLs leave both disabled.
type DatabaseConfig struct {
	PostgresURL string `yaml:"postgres_url"`
	RedisURL    string `yaml:"redis_url"`
}

// DevConfig holds developer/debug toggles.
type DevConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses a YAML config file, then overlays the LLM API key
// from the environment (it is never stored in YAML).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.LLM.APIKey = os.Getenv("ARENA_LLM_API_KEY")

	return cfg, nil
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Arena: ArenaConfig{
			GridSize:            20,
			AgentCount:          10,
			TickInterval:        time.Second,
			VotingWindow:        30 * time.Second,
			ShrinkIntervalTicks: 30,
			ObstacleDensity:     0.15,
			VisionRange:         4,
			MinBorder:           6,
			Backend:             "rule-based",
			ThinkingStorage:     "in-memory",
		},
		LLM: LLMConfig{
			Model:          "deepseek-chat",
			BaseURL:        "https://api.deepseek.com/v1",
			Timeout:        8 * time.Second,
			MaxConcurrency: 10,
			Temperature:    0.7,
		},
		Database: DatabaseConfig{},
		Dev:      DevConfig{Enabled: false},
	}
}
