// Package config loads the server configuration. A file in YAML, TOML or
// JSON (chosen by extension) is layered over built-in defaults, then
// IRCZT_* environment variables are applied on top, then the result is
// validated.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// IntRange bounds an integer bot parameter. Spawning draws uniformly from
// [Min, Max].
type IntRange struct {
	Min int `yaml:"min" toml:"min" json:"min" validate:"gte=0"`
	Max int `yaml:"max" toml:"max" json:"max" validate:"gtefield=Min"`
}

// FloatRange bounds a probability bot parameter. Spawning draws uniformly
// from [Min, Max].
type FloatRange struct {
	Min float64 `yaml:"min" toml:"min" json:"min" validate:"gte=0,lte=1"`
	Max float64 `yaml:"max" toml:"max" json:"max" validate:"gtefield=Min,lte=1"`
}

// Config is the full server configuration.
type Config struct {
	Server struct {
		// Name appears as the prefix on every server-originated line.
		Name string `yaml:"name" toml:"name" json:"name" env:"IRCZT_SERVER_NAME" validate:"required"`
		// Listen is the IRC TCP bind address in host:port form.
		Listen string `yaml:"listen" toml:"listen" json:"listen" env:"IRCZT_LISTEN" validate:"required,hostname_port"`
	} `yaml:"server" toml:"server" json:"server"`

	Admin struct {
		Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCZT_ADMIN_ENABLED"`
		Listen  string `yaml:"listen" toml:"listen" json:"listen" env:"IRCZT_ADMIN_LISTEN" validate:"omitempty,hostname_port"`
	} `yaml:"admin" toml:"admin" json:"admin"`

	// Channels are created at startup and live until shutdown.
	Channels []string `yaml:"channels" toml:"channels" json:"channels" env:"IRCZT_CHANNELS" validate:"dive,required,startswith=#"`

	Bots struct {
		Nicks          []string   `yaml:"nicks" toml:"nicks" json:"nicks" env:"IRCZT_BOT_NICKS" validate:"dive,required,max=9"`
		ChannelsTarget IntRange   `yaml:"channels_target" toml:"channels_target" json:"channels_target"`
		LeaveRate      FloatRange `yaml:"leave_rate" toml:"leave_rate" json:"leave_rate"`
		MessageRate    FloatRange `yaml:"message_rate" toml:"message_rate" json:"message_rate"`
		MessageLength  IntRange   `yaml:"message_length" toml:"message_length" json:"message_length"`
	} `yaml:"bots" toml:"bots" json:"bots"`

	// Words is the bank local bots draw chatter from.
	Words []string `yaml:"words" toml:"words" json:"words" env:"IRCZT_WORDS"`

	// Seed fixes the RNG for reproducible runs; 0 seeds from the clock.
	Seed int64 `yaml:"seed" toml:"seed" json:"seed" env:"IRCZT_SEED"`

	// Source records where the configuration was loaded from.
	Source string `yaml:"-" toml:"-" json:"-"`
}

var validate = validator.New()

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Name = "irczt.local"
	cfg.Server.Listen = "127.0.0.1:6667"
	cfg.Admin.Listen = "127.0.0.1:8080"
	cfg.Channels = []string{"#lobby", "#random", "#irczt"}
	cfg.Bots.Nicks = []string{"ada", "grace", "linus"}
	cfg.Bots.ChannelsTarget = IntRange{Min: 1, Max: 3}
	cfg.Bots.LeaveRate = FloatRange{Min: 0.05, Max: 0.15}
	cfg.Bots.MessageRate = FloatRange{Min: 0.2, Max: 0.5}
	cfg.Bots.MessageLength = IntRange{Min: 2, Max: 6}
	cfg.Words = []string{
		"lorem", "ipsum", "dolor", "sit", "amet", "consectetur",
		"adipiscing", "elit", "sed", "do", "eiusmod", "tempor",
	}
	return cfg
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied, for
// running without a configuration file.
func FromEnv() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Source = "defaults"
	return cfg, nil
}

// loadFile parses path into c based on its extension. YAML is the default
// for unknown extensions.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(path, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(c.Bots.Nicks) > 0 {
		if len(c.Words) == 0 {
			return fmt.Errorf("invalid configuration: bots configured but word bank is empty")
		}
		if c.Bots.MessageLength.Min < 1 {
			return fmt.Errorf("invalid configuration: bot message_length.min must be at least 1")
		}
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, name := range c.Channels {
		if seen[name] {
			return fmt.Errorf("invalid configuration: duplicate channel %s", name)
		}
		seen[name] = true
	}
	nicks := make(map[string]bool, len(c.Bots.Nicks))
	for _, nick := range c.Bots.Nicks {
		if nicks[nick] {
			return fmt.Errorf("invalid configuration: duplicate bot nick %s", nick)
		}
		nicks[nick] = true
	}
	return nil
}
