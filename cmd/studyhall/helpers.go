package main

import (
	"fmt"
	"os"

	studyhall "github.com/studyhall-app/studyhall-go"
)

// clientOptions builds SDK options from the stored configuration.
func clientOptions(cfg *Config) []studyhall.ClientOption {
	var opts []studyhall.ClientOption
	if cfg.Default.BaseURL != "" {
		opts = append(opts, studyhall.WithBaseURL(cfg.Default.BaseURL))
	} else if cfg.Default.Environment != "" && cfg.Default.Environment != "production" {
		opts = append(opts, studyhall.WithEnvironment(studyhall.Environment(cfg.Default.Environment)))
	}
	return opts
}

// getClient creates a StudyHall client authenticated with the stored token.
func getClient() *studyhall.Client {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.Token == "" {
		fmt.Fprintln(os.Stderr, "Not logged in. Run 'studyhall login <email>' or 'studyhall init <token>' first.")
		os.Exit(1)
	}
	return studyhall.NewClient(cfg.Auth.Token, clientOptions(cfg)...)
}

// apiError formats a failed Result into a returnable error.
func apiError(result *studyhall.Result) error {
	if result.Error != nil {
		return fmt.Errorf("API error: %s: %s", result.Error.Code, result.Error.Message)
	}
	return fmt.Errorf("API returned an error (no details)")
}
