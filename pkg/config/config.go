// Package config loads frameport configuration from files and the
// environment. All write options are pass-through to the parquet codec.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/logger"
)

// Config is the full frameport configuration
type Config struct {
	Log   LogConfig      `mapstructure:"log"`
	Write engine.Options `mapstructure:"write"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Encoding    string `mapstructure:"encoding"`
}

// Default returns the built-in configuration: console warnings, zstd
// compression with statistics and dictionary encoding.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "warn",
			Encoding: "console",
		},
		Write: engine.DefaultOptions(),
	}
}

// Load reads configuration from the given file with FRAMEPORT_*
// environment overrides. An empty path searches ./frameport.yaml and
// $HOME/.frameport/frameport.yaml instead, tolerating absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("frameport")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.frameport")
	}

	v.SetEnvPrefix("FRAMEPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.development", def.Log.Development)
	v.SetDefault("log.encoding", def.Log.Encoding)
	v.SetDefault("write.compression", def.Write.Compression)
	v.SetDefault("write.row_group_size", def.Write.RowGroupSize)
	v.SetDefault("write.data_page_size", def.Write.DataPageSize)
	v.SetDefault("write.statistics", def.Write.Statistics)
	v.SetDefault("write.dictionary", def.Write.Dictionary)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine when none was named explicitly.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || !notFound {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEngine, "parse config")
	}
	return cfg, nil
}

// LoggerConfig converts the log section into the logger package's form
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development,
		Encoding:    c.Log.Encoding,
	}
}
