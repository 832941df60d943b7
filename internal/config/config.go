package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultEnergyBaseURL = "https://api.openvolt.com/v1/interval-data"
	defaultCarbonBaseURL = "https://api.carbonintensity.org.uk"
	defaultGranularity   = "hh"
)

// granularities are the interval sizes the Openvolt API serves
var granularities = map[string]bool{"hh": true, "hour": true, "day": true, "week": true}

// Config holds the application configuration
type Config struct {
	Openvolt        OpenvoltConfig `yaml:"openvolt"`
	CarbonIntensity CarbonConfig   `yaml:"carbon_intensity,omitempty"`
	Period          PeriodConfig   `yaml:"period"`
	Granularity     string         `yaml:"granularity,omitempty"` // Fallback: "hh"
	HomeAssistant   HAConfig       `yaml:"home_assistant,omitempty"`
	MQTT            MQTTConfig     `yaml:"mqtt,omitempty"`
}

// OpenvoltConfig holds the energy interval API settings
type OpenvoltConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	MeterID string `yaml:"meter_id"`
}

// CarbonConfig holds the national grid carbon intensity API settings
type CarbonConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
}

// PeriodConfig is the consumption window, RFC3339 timestamps
type PeriodConfig struct {
	Start string `yaml:"start"` // e.g., "2023-01-01T00:00:00Z"
	End   string `yaml:"end"`   // e.g., "2023-01-31T23:59:59Z"
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`                     // e.g., "http://homeassistant.local:8123"
	Token        string `yaml:"token"`                   // Long-lived access token
	EntityPrefix string `yaml:"entity_prefix,omitempty"` // e.g., "sensor.building_carbon"
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// Load reads the config file over the defaults and applies .env / environment overrides.
// Keys absent from the file, or a missing file, keep their Default values.
func Load(configPath string) (*Config, error) {
	// A missing .env is normal, the real environment still applies
	_ = godotenv.Load()

	cfg := *Default()
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv lets secrets live outside the YAML file
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENVOLT_API_KEY"); v != "" {
		c.Openvolt.APIKey = v
	}
	if v := os.Getenv("OPENVOLT_METER_ID"); v != "" {
		c.Openvolt.MeterID = v
	}
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Default returns a config populated with the public API endpoints and a sample month
func Default() *Config {
	return &Config{
		Openvolt: OpenvoltConfig{
			BaseURL: defaultEnergyBaseURL,
		},
		CarbonIntensity: CarbonConfig{
			BaseURL: defaultCarbonBaseURL,
		},
		Period: PeriodConfig{
			Start: "2023-01-01T00:00:00Z",
			End:   "2023-01-31T23:59:59Z",
		},
		Granularity: defaultGranularity,
		MQTT: MQTTConfig{
			TopicPrefix: "gridcarbon",
		},
	}
}

// GetEnergyBaseURL returns the Openvolt interval-data endpoint
func (c *Config) GetEnergyBaseURL() string {
	if c.Openvolt.BaseURL == "" {
		return defaultEnergyBaseURL
	}
	return c.Openvolt.BaseURL
}

// GetCarbonBaseURL returns the carbon intensity API root
func (c *Config) GetCarbonBaseURL() string {
	if c.CarbonIntensity.BaseURL == "" {
		return defaultCarbonBaseURL
	}
	return c.CarbonIntensity.BaseURL
}

// GetGranularity returns the interval granularity with a default of half-hourly
func (c *Config) GetGranularity() string {
	if c.Granularity == "" {
		return defaultGranularity
	}
	return c.Granularity
}

// GetPeriod parses the configured window
func (c *Config) GetPeriod() (time.Time, time.Time, error) {
	return ParsePeriod(c.Period.Start, c.Period.End)
}

// ParsePeriod parses a start/end pair. Plain dates (YYYY-MM-DD) are accepted;
// an end date without a time covers the whole day.
func ParsePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	start, _, err := parseTimestamp(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing period start: %w", err)
	}
	end, dateOnly, err := parseTimestamp(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing period end: %w", err)
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Second)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("period start %s is not before end %s", startStr, endStr)
	}
	return start, end, nil
}

func parseTimestamp(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid timestamp %q (use RFC3339 or YYYY-MM-DD)", s)
	}
	return t, true, nil
}

// Validate checks that enough is configured to run the stats chain
func (c *Config) Validate() error {
	if c.Openvolt.APIKey == "" {
		return fmt.Errorf("openvolt api_key is not set (config.yaml or OPENVOLT_API_KEY)")
	}
	if c.Openvolt.MeterID == "" {
		return fmt.Errorf("openvolt meter_id is not set (config.yaml or OPENVOLT_METER_ID)")
	}
	if g := c.GetGranularity(); !granularities[g] {
		return fmt.Errorf("unsupported granularity %q (use hh, hour, day or week)", g)
	}
	if _, _, err := c.GetPeriod(); err != nil {
		return err
	}
	return nil
}
