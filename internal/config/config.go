package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "90s", "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Timings are the fixed wall-clock budgets the orchestrator runs on. They are
// a coarse substitute for a push-based completion signal the calling backend
// does not provide; a real webhook would obsolete most of them.
type Timings struct {
	// CallSlotDelay is how long a placement worker sleeps between claims,
	// which bounds the number of truly simultaneous live calls per worker.
	CallSlotDelay Duration `yaml:"call_slot_delay"`
	// PostDialWait is the minimum age of the most recently placed call
	// before transcript collection starts.
	PostDialWait Duration `yaml:"post_dial_wait"`

	TranscriptFastAttempts     int      `yaml:"transcript_fast_attempts"`
	TranscriptFastInterval     Duration `yaml:"transcript_fast_interval"`
	TranscriptExtendedAttempts int      `yaml:"transcript_extended_attempts"`
	TranscriptExtendedInterval Duration `yaml:"transcript_extended_interval"`

	// TranscriptMatchBuffer widens the created_at window when matching a
	// listing row to a call, tolerating clock skew and listing lag.
	TranscriptMatchBuffer Duration `yaml:"transcript_match_buffer"`
	// AnalyticsMatchBuffer widens the window when re-resolving call ids
	// against the campaign start time.
	AnalyticsMatchBuffer Duration `yaml:"analytics_match_buffer"`

	LookupRetries    int      `yaml:"lookup_retries"`
	LookupRetryDelay Duration `yaml:"lookup_retry_delay"`
}

type Campaign struct {
	MaxConcurrentCalls int     `yaml:"max_concurrent_calls"`
	DefaultCountryCode string  `yaml:"default_country_code"`
	DefaultTrunk       string  `yaml:"default_trunk"`
	Timings            Timings `yaml:"timings"`
}

type Monade struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type Server struct {
	Port string `yaml:"port"`
}

type Storage struct {
	DataDir string `yaml:"data_dir"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Monade   Monade   `yaml:"monade"`
	Storage  Storage  `yaml:"storage"`
	Campaign Campaign `yaml:"campaign"`
}

// Default returns the production budgets described in the runbook.
func Default() Config {
	return Config{
		Server:  Server{Port: "8080"},
		Storage: Storage{DataDir: "data"},
		Campaign: Campaign{
			MaxConcurrentCalls: 5,
			DefaultCountryCode: "+91",
			DefaultTrunk:       "vobiz",
			Timings: Timings{
				CallSlotDelay:              Duration(90 * time.Second),
				PostDialWait:               Duration(90 * time.Second),
				TranscriptFastAttempts:     3,
				TranscriptFastInterval:     Duration(5 * time.Second),
				TranscriptExtendedAttempts: 2,
				TranscriptExtendedInterval: Duration(5 * time.Second),
				TranscriptMatchBuffer:      Duration(30 * time.Second),
				AnalyticsMatchBuffer:       Duration(60 * time.Second),
				LookupRetries:              3,
				LookupRetryDelay:           Duration(2 * time.Second),
			},
		},
	}
}

// Load reads the YAML config at path (if it exists) over the defaults, then
// applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("MONADE_BASE_URL"); v != "" {
		c.Monade.BaseURL = v
	}
	if v := os.Getenv("MONADE_API_KEY"); v != "" {
		c.Monade.APIKey = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("MAX_CONCURRENT_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Campaign.MaxConcurrentCalls = n
		}
	}
	if v := os.Getenv("DEFAULT_COUNTRY_CODE"); v != "" {
		c.Campaign.DefaultCountryCode = v
	}
	if v := os.Getenv("DEFAULT_TRUNK"); v != "" {
		c.Campaign.DefaultTrunk = v
	}
}
