// Package config provides functionality for managing configuration options
// for the client using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the client.
type Options struct {
	// BaseURL is the AuthMatrix backend base URL.
	BaseURL string

	// TokenFile is the path of the file holding the persisted credential token.
	TokenFile string

	// TimeoutSeconds bounds every backend request.
	TimeoutSeconds int

	// LogLevel selects the zap logging level (debug, info, warn, error).
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.BaseURL, "s", "http://localhost:8080", "backend base URL")
	flag.StringVar(&options.TokenFile, "t", "token.json", "path to the credential token file")
	flag.IntVar(&options.TimeoutSeconds, "timeout", 15, "request timeout in seconds")
	flag.StringVar(&options.LogLevel, "l", "info", "log level")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if baseURL := os.Getenv("AUTHMATRIX_URL"); baseURL != "" {
		options.BaseURL = baseURL
	}
	if tokenFile := os.Getenv("AUTHMATRIX_TOKEN_FILE"); tokenFile != "" {
		options.TokenFile = tokenFile
	}

	return options
}
