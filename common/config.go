// common/config.go
package common

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DEFAULT_CONFIG_FILE = "elevsim.yaml"

type Config struct {
	// WebSocket listener, always on.
	ListenAddr string `yaml:"listenAddr"`

	// Optional framed transports; empty disables them.
	QUICAddr string `yaml:"quicAddr"`
	KCPAddr  string `yaml:"kcpAddr"`

	MinFloor int `yaml:"minFloor"`
	MaxFloor int `yaml:"maxFloor"`
	Capacity int `yaml:"capacity"`

	TravelDelay    time.Duration `yaml:"travelDelay"`
	ExportInterval time.Duration `yaml:"exportInterval"`
	ExportPath     string        `yaml:"exportPath"`

	LogLevel string `yaml:"logLevel"`
}

// DefaultConfig returns the fixed values the server runs with when no
// config file is present.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     "localhost:9090",
		MinFloor:       1,
		MaxFloor:       10,
		Capacity:       10,
		TravelDelay:    2 * time.Second,
		ExportInterval: 2 * time.Minute,
		ExportPath:     "visitas_pisos.xlsx",
		LogLevel:       "info",
	}
}

// LoadConfig overlays the yaml file at path on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return DefaultConfig(), fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("config: listenAddr is empty")
	case c.MinFloor < 1 || c.MaxFloor <= c.MinFloor:
		return fmt.Errorf("config: invalid floor range [%d,%d]", c.MinFloor, c.MaxFloor)
	case c.Capacity <= 0:
		return fmt.Errorf("config: capacity must be positive, got %d", c.Capacity)
	case c.TravelDelay < 0:
		return fmt.Errorf("config: travelDelay must not be negative")
	case c.ExportInterval <= 0:
		return fmt.Errorf("config: exportInterval must be positive")
	case c.ExportPath == "":
		return fmt.Errorf("config: exportPath is empty")
	}
	return nil
}

func (c Config) ValidFloor(floor int) bool {
	return floor >= c.MinFloor && floor <= c.MaxFloor
}
