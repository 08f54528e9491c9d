// This file defines the configuration structure for the application.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port            int    `mapstructure:"port"`
	BaseURL         string `mapstructure:"base_url"`
	RefreshInterval int    `mapstructure:"refresh_interval"`
	FetchTimeout    int    `mapstructure:"fetch_timeout"`
	Database        struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Output struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"output"`
	EPG struct {
		DataPath  string `mapstructure:"data_path"`
		SitesPath string `mapstructure:"sites_path"`
	} `mapstructure:"epg"`
	Movies struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"movies"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")
	viper.AddConfigPath(".") // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with an "ANTENNA_" prefix.
	// e.g., ANTENNA_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("ANTENNA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("base_url", "http://localhost:8080")
	viper.SetDefault("refresh_interval", 360)
	viper.SetDefault("fetch_timeout", 60)
	viper.SetDefault("database.path", "./antenna.db")
	viper.SetDefault("output.path", "./data/output")
	viper.SetDefault("epg.data_path", "./data/epg")
	viper.SetDefault("epg.sites_path", "./data/sites")
	viper.SetDefault("movies.path", "./data/movies")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
