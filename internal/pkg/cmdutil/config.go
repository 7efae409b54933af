// Package cmdutil provides shared utilities for CLI command implementations.
package cmdutil

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// GetStringConfig returns the config value for key, or flagValue if the key is not set.
// Flag values take precedence over config file values.
func GetStringConfig(key, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(key)
}

// GetStringSliceConfig returns flagValue when it is non-empty and the config
// value for key otherwise. Comma-separated entries are split so that
// "-p IP,MAC" and a YAML list behave the same.
func GetStringSliceConfig(key string, flagValue []string) []string {
	values := flagValue
	if len(values) == 0 {
		values = viper.GetStringSlice(key)
	}

	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GetIntConfig returns flagValue when the flag was set explicitly, then the
// config value for key, then flagValue as the default.
func GetIntConfig(key string, flagValue int, flagChanged bool) int {
	if !flagChanged && viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return flagValue
}

// GetSizeConfig resolves a size the same way as GetStringConfig and parses
// it with ParseSizeString. An empty value yields def.
func GetSizeConfig(key, flagValue string, def int64) (int64, error) {
	s := GetStringConfig(key, flagValue)
	if s == "" {
		return def, nil
	}
	n, err := ParseSizeString(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// ParseSizeString parses a size string (e.g., "100M", "1G", "500K") and returns bytes.
// Supported suffixes: K/k (KiB), M/m (MiB), G/g (GiB), T/t (TiB).
func ParseSizeString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var multiplier int64 = 1
	switch s[len(s)-1] {
	case 'K', 'k':
		multiplier = 1 << 10
	case 'M', 'm':
		multiplier = 1 << 20
	case 'G', 'g':
		multiplier = 1 << 30
	case 'T', 't':
		multiplier = 1 << 40
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	var value int64
	if _, err := fmt.Sscanf(s, "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative size %d", value)
	}
	return value * multiplier, nil
}
