package config

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

var (
	MinRateLimitBurst = 1
)

// ValidateConfig checks the values the node cannot safely start with.
func ValidateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("LogLevel: %w", err)
	}
	if _, err := c.Program.Affiliates(); err != nil {
		return fmt.Errorf("program: %w", err)
	}
	if c.Rent.LamportsPerByteYear == 0 {
		return fmt.Errorf("rent: LamportsPerByteYear must be positive")
	}
	if t := c.Rent.ExemptionThreshold; math.IsNaN(t) || math.IsInf(t, 0) || t < 1 {
		return fmt.Errorf("rent: ExemptionThreshold must be at least 1")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("ratelimit: RequestsPerSecond < 0")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < MinRateLimitBurst {
		return fmt.Errorf("ratelimit: Burst must be at least %d", MinRateLimitBurst)
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	if c.EnableFaucet && c.Faucet.MaxLamportsPerCall == 0 {
		return fmt.Errorf("faucet: MaxLamportsPerCall must be positive when enabled")
	}
	return nil
}
