package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	TCPAddr       string        `envconfig:"TCP_ADDR" default:":3215"`
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`
	DBPath        string        `envconfig:"DB_PATH" default:"minim.db"`
	ReadTimeout   time.Duration `envconfig:"READ_TIMEOUT" default:"120s"`
	WriteTimeout  time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	ControlSocket string        `envconfig:"CONTROL_SOCKET" default:"/tmp/minim.sock"`
}

// Load reads configuration from MINIM_* environment variables,
// falling back to defaults suitable for local runs.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("minim", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
