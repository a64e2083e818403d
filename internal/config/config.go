// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the admitiq server needs to start.
type Config struct {
	Port         string        `mapstructure:"port"`
	DatabasePath string        `mapstructure:"database_path"`
	StatsTTL     time.Duration `mapstructure:"stats_ttl"`

	// PaymentBaseURL is the prefix for generated payment links.
	PaymentBaseURL string `mapstructure:"payment_base_url"`

	OTel OTelConfig `mapstructure:"otel"`
}

// OTelConfig holds OpenTelemetry provider settings.
type OTelConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
	Exporter       string `mapstructure:"exporter"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:           "8080",
		DatabasePath:   "admitiq.db",
		StatsTTL:       2 * time.Minute,
		PaymentBaseURL: "https://pay.example.com/links",
		OTel: OTelConfig{
			ServiceName:    "admitiq",
			ServiceVersion: "0.1.0",
			Environment:    "development",
			Exporter:       "stdout",
		},
	}
}

// Load reads configuration from ADMITIQ_* environment variables on top
// of the defaults (e.g. ADMITIQ_PORT, ADMITIQ_OTEL_EXPORTER).
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("admitiq")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("port", d.Port)
	v.SetDefault("database_path", d.DatabasePath)
	v.SetDefault("stats_ttl", d.StatsTTL)
	v.SetDefault("payment_base_url", d.PaymentBaseURL)
	v.SetDefault("otel.service_name", d.OTel.ServiceName)
	v.SetDefault("otel.service_version", d.OTel.ServiceVersion)
	v.SetDefault("otel.environment", d.OTel.Environment)
	v.SetDefault("otel.exporter", d.OTel.Exporter)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}
