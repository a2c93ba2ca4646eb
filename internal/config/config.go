package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Env variable names recognized by Load. They override the YAML file.
const (
	EnvConfigPath = "RAILFORGE_CONFIG"
	EnvAddr       = "RAILFORGE_ADDR"
	EnvPort       = "RAILFORGE_PORT"
	EnvMapDB      = "RAILFORGE_MAP_DB"
	EnvReplayDSN  = "RAILFORGE_REPLAY_DSN"
	EnvProfile    = "RAILFORGE_PROFILE"
)

// Server holds all configuration for the game server process.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Stores
	MapDBPath string `yaml:"map_db"`     // SQLite map database file
	ReplayDSN string `yaml:"replay_dsn"` // PostgreSQL DSN; empty keeps replays in memory

	// Game rules profile: production, testing, testing_with_events.
	Profile string `yaml:"profile"`

	// Current map served to new games.
	MapName string `yaml:"map_name"`

	LogLevel string `yaml:"log_level"`

	// Flood protection for the accept loop.
	FloodProtection  bool `yaml:"flood_protection"`
	AcceptsPerSecond int  `yaml:"accepts_per_second"`
	AcceptBurst      int  `yaml:"accept_burst"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		BindAddress:      "0.0.0.0",
		Port:             2000,
		MapDBPath:        "data/map.db",
		ReplayDSN:        "",
		Profile:          ProfileProduction,
		MapName:          "map03",
		LogLevel:         "info",
		FloodProtection:  true,
		AcceptsPerSecond: 50,
		AcceptBurst:      100,
	}
}

// Load reads server config from a YAML file and applies env overrides.
// A missing file is not an error: defaults are used.
func Load(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if v := os.Getenv(EnvAddr); v != "" {
		cfg.BindAddress = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parsing %s=%q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(EnvMapDB); v != "" {
		cfg.MapDBPath = v
	}
	if v := os.Getenv(EnvReplayDSN); v != "" {
		cfg.ReplayDSN = v
	}
	if v := os.Getenv(EnvProfile); v != "" {
		cfg.Profile = v
	}

	return cfg, nil
}
