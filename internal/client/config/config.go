package config

import "time"

// Config holds runtime settings for the LearnQuest CLI.
type Config struct {
	// ServerEndpointAddr is the base URL of the identity HTTP API, including the /api prefix.
	ServerEndpointAddr string
	// HealthAddr is host:port of the server's gRPC health endpoint.
	HealthAddr          string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	// SessionDSN is the SQLite database that keeps the session between runs.
	SessionDSN string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:5002/api"
	c.HealthAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.SessionDSN = "session.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
