// Package config handles the configuration of the simulator. Settings are
// read from a YAML file (if one is found) and can be overridden one by one
// through MABSIM_* environment variables.
package config

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/viper"
)

const (
	// API_PORT is the port the HTTP server listens on.
	API_PORT = "api.port"
	// API_MAX_BATCH caps the number of pulls a single request may run.
	API_MAX_BATCH = "api.maxbatch"
	// LOG_DIR is the directory for the per-policy CSV pull logs. Empty
	// disables CSV logging.
	LOG_DIR = "logging.dir"
	// METRICS_ENABLED turns on the prometheus endpoint.
	METRICS_ENABLED = "metrics.enabled"
	// SIM_SEED is the seed applied to sessions whose request does not
	// carry one. 0 (the default) leaves those sessions non-deterministic.
	SIM_SEED = "simulation.seed"
)

// ReadConfiguration reads the configuration file from one of the default
// locations, or from customFile if given. A missing file is not an error:
// every key has a default at its point of use.
func ReadConfiguration(customFile string) {
	viper.SetConfigType("yaml")
	if customFile != "" {
		viper.SetConfigFile(customFile)
	} else {
		viper.SetConfigName("mabsim-conf")
		viper.AddConfigPath("/etc/mabsim/")
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("mabsim")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("Could not read config file: %v\n", err)
		}
	} else {
		log.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// GetInt returns the configured value for the given key, or the default.
func GetInt(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return defaultValue
}

// GetFloat returns the configured value for the given key, or the default.
func GetFloat(key string, defaultValue float64) float64 {
	if viper.IsSet(key) {
		return viper.GetFloat64(key)
	}
	return defaultValue
}

// GetString returns the configured value for the given key, or the default.
func GetString(key string, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

// GetBool returns the configured value for the given key, or the default.
func GetBool(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return defaultValue
}
