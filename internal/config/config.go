package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration
type Config struct {
	DB        string `mapstructure:"db"`
	Addr      string `mapstructure:"addr"`
	LogLevel  string `mapstructure:"log_level"`
	Seed      string `mapstructure:"seed"`
	LinkBase  string `mapstructure:"link_base"`
	Mode      string `mapstructure:"mode"`
	Year      int    `mapstructure:"year"`
	SessionID string `mapstructure:"session"`
}

// New returns a viper instance with defaults and SYLLABUS_* environment
// overrides applied
func New() *viper.Viper {
	v := viper.New()

	home, _ := os.UserHomeDir()
	v.SetDefault("db", filepath.Join(home, ".syllabus", "syllabus.db"))
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("seed", "")
	v.SetDefault("link_base", "https://resources.syllabus.local")
	v.SetDefault("mode", "catalog")
	v.SetDefault("year", 0)
	v.SetDefault("session", "cli")

	v.SetEnvPrefix("SYLLABUS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and decodes v. An empty path looks
// for syllabus.{yaml,toml,json} in the working directory and ~/.syllabus,
// and a missing file there is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("syllabus")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".syllabus"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Year < 0 {
		return Config{}, fmt.Errorf("year must not be negative: %d", cfg.Year)
	}
	return cfg, nil
}
