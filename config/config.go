/*
config.go - Server configuration

Loaded from a config file via viper with APP_* environment overrides.
Every field has a default, so the server runs with no config file at
all; flags in cmd/server take precedence over both.
*/
package config

import (
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	DB struct {
		Path string
	} `mapstructure:"db"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// Load reads the config file at path. A missing file is not an error;
// defaults and environment variables still apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.path", "stockledger.db")
	v.SetDefault("metrics.enabled", true)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
