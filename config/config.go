package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"solpay/native/affiliates"
)

// Config is the node configuration. Files ending in .yaml or .yml are read as
// YAML; everything else is TOML.
type Config struct {
	DataDir      string `toml:"DataDir" yaml:"DataDir"`
	RPCAddress   string `toml:"RPCAddress" yaml:"RPCAddress"`
	Environment  string `toml:"Environment" yaml:"Environment"`
	LogLevel     string `toml:"LogLevel" yaml:"LogLevel"`
	LogFile      string `toml:"LogFile,omitempty" yaml:"LogFile,omitempty"`
	IndexDSN     string `toml:"IndexDSN" yaml:"IndexDSN"`
	EnableFaucet bool   `toml:"EnableFaucet" yaml:"EnableFaucet"`

	Program   Program   `toml:"Program" yaml:"Program"`
	Rent      Rent      `toml:"Rent" yaml:"Rent"`
	Pauses    Pauses    `toml:"Pauses" yaml:"Pauses"`
	RateLimit RateLimit `toml:"RateLimit" yaml:"RateLimit"`
	Telemetry Telemetry `toml:"Telemetry" yaml:"Telemetry"`
	Faucet    Faucet    `toml:"Faucet" yaml:"Faucet"`
}

// Default returns the configuration written for a fresh local node.
func Default() *Config {
	program := affiliates.DefaultConfig()
	return &Config{
		DataDir:     "./solpay-data",
		RPCAddress:  ":8899",
		Environment: "local",
		LogLevel:    "info",
		IndexDSN:    "file:solpay-index.db",
		Program: Program{
			ProgramID:       program.ProgramID.String(),
			Admin:           program.Admin.String(),
			Treasury:        program.Treasury.String(),
			RegistrationFee: program.RegistrationFee,
			LinkagePolicy:   string(program.LinkagePolicy),
		},
		Rent: Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2.0},
		RateLimit: RateLimit{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Telemetry: Telemetry{
			ServiceName: "solpayd",
			SampleRatio: 1.0,
		},
		Faucet: Faucet{
			MaxRequestsPerEpoch: 5,
			MaxLamportsPerEpoch: 10 * affiliates.LamportsPerSOL,
			EpochSeconds:        3600,
			MaxLamportsPerCall:  2 * affiliates.LamportsPerSOL,
		},
	}
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: %s: unknown field %s", path, undecoded[0])
		}
	}
	cfg.normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.TrimSpace(c.Environment)
	if c.Environment == "" {
		c.Environment = "local"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = "solpayd"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
