package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Inject    InjectConfig    `yaml:"inject"`
	Verbose   bool            `yaml:"verbose"`
	Debug     bool            `yaml:"debug"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	APIToken       string   `yaml:"api_token"`
}

type RateLimitConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

type InjectConfig struct {
	AuthTimeout   time.Duration `yaml:"auth_timeout"`
	ProjectDB     string        `yaml:"project_db"`
	CoreTemplate  string        `yaml:"core_template"`
	DebugTemplate string        `yaml:"debug_template"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		RateLimit: RateLimitConfig{
			Max:    100,
			Window: 60 * time.Second,
		},
		Inject: InjectConfig{
			AuthTimeout: 30 * time.Second,
			ProjectDB:   "projects.db",
		},
	}
}
