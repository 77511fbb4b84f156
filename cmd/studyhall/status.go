package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	studyhall "github.com/studyhall-app/studyhall-go"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current configuration and account status",
	Long:  "Display the current configuration, check if the session token is expired, and fetch live account info.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Print config summary.
		fmt.Println("Configuration:")
		fmt.Printf("  Environment: %s\n", valueOrDefault(cfg.Default.Environment, "(not set)"))
		if cfg.Default.BaseURL != "" {
			fmt.Printf("  Base URL:    %s\n", cfg.Default.BaseURL)
		}

		fmt.Println()
		fmt.Println("Auth:")
		if cfg.Auth.Username != "" {
			fmt.Printf("  Username: %s\n", cfg.Auth.Username)
			fmt.Printf("  User ID:  %s\n", cfg.Auth.UserID)
		} else {
			fmt.Println("  Username: (not logged in)")
		}

		// Check token expiry.
		tokenStatus := "none"
		if cfg.Auth.Token != "" {
			if cfg.Auth.TokenExpires != "" {
				expires, err := time.Parse(time.RFC3339, cfg.Auth.TokenExpires)
				if err == nil {
					if time.Now().Before(expires) {
						tokenStatus = fmt.Sprintf("valid (expires %s)", expires.Format(time.RFC3339))
					} else {
						tokenStatus = fmt.Sprintf("EXPIRED (expired %s)", expires.Format(time.RFC3339))
					}
				} else {
					tokenStatus = fmt.Sprintf("present (unparseable expiry: %s)", cfg.Auth.TokenExpires)
				}
			} else {
				tokenStatus = "present (no expiry set)"
			}
		}
		fmt.Printf("  Token:    %s\n", tokenStatus)

		// Fetch live status if we have a token.
		if cfg.Auth.Token == "" {
			return nil
		}
		fmt.Println()
		fmt.Println("Live status:")

		client := studyhall.NewClient(cfg.Auth.Token, clientOptions(cfg)...)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Auth().Me(ctx)
		if err != nil {
			fmt.Printf("  Error fetching account info: %v\n", err)
			return nil
		}
		if !result.OK {
			fmt.Printf("  %v\n", apiError(result))
			return nil
		}

		var me studyhall.User
		if err := result.Decode(&me); err != nil {
			fmt.Printf("  Error decoding response: %v\n", err)
			return nil
		}

		fmt.Printf("  Username:     %s\n", me.Username)
		fmt.Printf("  Display Name: %s\n", me.DisplayName)
		if me.Email != "" {
			fmt.Printf("  Email:        %s\n", me.Email)
		}

		center := studyhall.NewNotificationCenter(client, nil)
		if count, err := center.Unread(ctx); err == nil {
			fmt.Printf("  Unread:       %d\n", count)
		}

		return nil
	},
}

// valueOrDefault returns def when val is empty.
func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
