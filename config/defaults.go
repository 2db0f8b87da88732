package config

import "time"

// DefaultConfig returns the configuration used when nothing else is set.
// Secrets (API keys) have no defaults and must come from the file or
// environment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Model:      "gpt-4o-mini",
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
		Search: SearchConfig{
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Backend:      "memory",
			RedisAddr:    "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			TTL:          24 * time.Hour,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    "tripflow_archive.db",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     10,
			Burst:   20,
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "tripflow",
		},
	}
}
