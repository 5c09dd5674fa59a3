package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings are the process-level knobs, read from the environment.
type Settings struct {
	HTTPAddr      string        `env:"WHEEL_HTTP_ADDR"      envDefault:":8080"`
	GRPCAddr      string        `env:"WHEEL_GRPC_ADDR"      envDefault:":9090"`
	ConfigDir     string        `env:"WHEEL_CONFIG_DIR"     envDefault:"configs"`
	WheelName     string        `env:"WHEEL_NAME"           envDefault:"default"`
	LogLevel      string        `env:"WHEEL_LOG_LEVEL"      envDefault:"info"`
	LogFile       bool          `env:"WHEEL_LOG_FILE"`
	LogDir        string        `env:"WHEEL_LOG_DIR"        envDefault:"logs"`
	WatchInterval time.Duration `env:"WHEEL_WATCH_INTERVAL" envDefault:"2s"`
	Seed          uint64        `env:"WHEEL_SEED"`
	AutoComplete  bool          `env:"WHEEL_AUTO_COMPLETE"`
}

// LoadSettings parses Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
