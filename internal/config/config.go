package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sensorfusion/internal/client"
	"sensorfusion/internal/quorum"
	"sensorfusion/internal/reconcile"
	"sensorfusion/internal/sensor"
	"sensorfusion/internal/storage"
)

// Sensor is one sensor node in the deployment.
type Sensor struct {
	ID   string
	Addr string
}

// Config holds the deployment configuration shared by every command.
type Config struct {
	// Sensors is "id1=addr1,id2=addr2,...".
	Sensors     string            `yaml:"sensors"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Client      ClientConfig      `yaml:"client"`
	Storage     StorageConfig     `yaml:"storage"`
	Sampler     SamplerConfig     `yaml:"sampler"`
}

type CoordinatorConfig struct {
	Addr          string        `yaml:"addr"`
	Listen        string        `yaml:"listen"`
	Period        time.Duration `yaml:"period"`
	SensorTimeout time.Duration `yaml:"sensor_timeout"`
}

type ClientConfig struct {
	Tolerance    float64       `yaml:"tolerance"`
	Required     int           `yaml:"required"`
	Interval     time.Duration `yaml:"interval"`
	GateInterval time.Duration `yaml:"gate_interval"`
}

// StorageConfig selects the sensor store. DSN may contain "{id}", which is
// replaced by the sensor id.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

type SamplerConfig struct {
	Baseline    float64       `yaml:"baseline"`
	Jitter      float64       `yaml:"jitter"`
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

// Default returns a three-sensor local deployment.
func Default() *Config {
	sc := sensor.DefaultSamplerConfig()
	return &Config{
		Sensors: "S1=127.0.0.1:50061,S2=127.0.0.1:50062,S3=127.0.0.1:50063",
		Coordinator: CoordinatorConfig{
			Addr:          "127.0.0.1:50060",
			Listen:        ":50060",
			Period:        reconcile.DefaultPeriod,
			SensorTimeout: quorum.DefaultPerSensorTimeout,
		},
		Client: ClientConfig{
			Tolerance:    quorum.DefaultTolerance,
			Interval:     client.DefaultInterval,
			GateInterval: client.DefaultGateInterval,
		},
		Storage: StorageConfig{
			Backend: storage.BackendMemory,
		},
		Sampler: SamplerConfig{
			Baseline:    sc.Baseline,
			Jitter:      sc.Jitter,
			MinInterval: sc.MinInterval,
			MaxInterval: sc.MaxInterval,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	sensors, err := c.SensorList()
	if err != nil {
		return err
	}
	if len(sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	seen := make(map[string]bool, len(sensors))
	for _, s := range sensors {
		if seen[s.ID] {
			return fmt.Errorf("duplicate sensor id %q", s.ID)
		}
		seen[s.ID] = true
	}

	if c.Coordinator.Period <= 0 {
		return fmt.Errorf("coordinator period must be positive, got %s", c.Coordinator.Period)
	}
	if c.Coordinator.SensorTimeout <= 0 {
		return fmt.Errorf("sensor timeout must be positive, got %s", c.Coordinator.SensorTimeout)
	}

	if c.Client.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %v", c.Client.Tolerance)
	}
	if c.Client.Required < 0 || c.Client.Required > len(sensors) {
		return fmt.Errorf("required=%d must be between 0 and the sensor count %d", c.Client.Required, len(sensors))
	}
	if c.Client.GateInterval <= 0 {
		return fmt.Errorf("gate interval must be positive, got %s", c.Client.GateInterval)
	}

	switch c.Storage.Backend {
	case storage.BackendMemory, storage.BackendSQLite, storage.BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != storage.BackendMemory && c.Storage.DSN == "" {
		return fmt.Errorf("storage backend %q requires a dsn", c.Storage.Backend)
	}

	if c.Sampler.Jitter < 0 {
		return fmt.Errorf("sampler jitter must be non-negative, got %v", c.Sampler.Jitter)
	}
	if c.Sampler.MinInterval <= 0 || c.Sampler.MaxInterval < c.Sampler.MinInterval {
		return fmt.Errorf("sampler interval range [%s, %s] is invalid", c.Sampler.MinInterval, c.Sampler.MaxInterval)
	}

	return nil
}

// SensorList parses the Sensors field.
func (c *Config) SensorList() ([]Sensor, error) {
	return ParseSensors(c.Sensors)
}

// FindSensor returns the sensor with id.
func (c *Config) FindSensor(id string) (Sensor, error) {
	sensors, err := c.SensorList()
	if err != nil {
		return Sensor{}, err
	}
	for _, s := range sensors {
		if s.ID == id {
			return s, nil
		}
	}
	return Sensor{}, fmt.Errorf("sensor %q not found in %q", id, c.Sensors)
}

// DSNFor returns the storage DSN for sensor id.
func (s StorageConfig) DSNFor(id string) string {
	return strings.ReplaceAll(s.DSN, "{id}", id)
}

// Settings converts to the sensor package's sampler settings.
func (s SamplerConfig) Settings() sensor.SamplerConfig {
	return sensor.SamplerConfig{
		Baseline:    s.Baseline,
		Jitter:      s.Jitter,
		MinInterval: s.MinInterval,
		MaxInterval: s.MaxInterval,
	}
}

// ClientOptions converts to client loop options.
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		Tolerance:     c.Client.Tolerance,
		Required:      c.Client.Required,
		Interval:      c.Client.Interval,
		GateInterval:  c.Client.GateInterval,
		SensorTimeout: c.Coordinator.SensorTimeout,
	}
}

// ParseSensors parses a comma-separated list of sensors in the format:
// "id1=addr1,id2=addr2,id3=addr3"
func ParseSensors(sensorsStr string) ([]Sensor, error) {
	if sensorsStr == "" {
		return []Sensor{}, nil
	}

	parts := strings.Split(sensorsStr, ",")
	sensors := make([]Sensor, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid sensor format: %s (expected id=addr)", part)
		}

		id := strings.TrimSpace(kv[0])
		addr := strings.TrimSpace(kv[1])

		if id == "" || addr == "" {
			return nil, fmt.Errorf("sensor ID and address cannot be empty: %s", part)
		}

		sensors = append(sensors, Sensor{
			ID:   id,
			Addr: addr,
		})
	}

	return sensors, nil
}
