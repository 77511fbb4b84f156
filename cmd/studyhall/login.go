package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	studyhall "github.com/studyhall-app/studyhall-go"
)

var loginPassword string

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (falls back to STUDYHALL_PASSWORD)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and store the session token locally",
	Long:  "Authenticate with StudyHall and store the returned session token in ~/.studyhall/config.toml.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

		password := loginPassword
		if password == "" {
			password = os.Getenv("STUDYHALL_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("no password given; use --password or set STUDYHALL_PASSWORD")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		client := studyhall.NewClient("", clientOptions(cfg)...)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := client.Auth().Login(ctx, &studyhall.LoginOptions{
			Email:    email,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("login request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var login studyhall.LoginData
		if err := result.Decode(&login); err != nil {
			return fmt.Errorf("failed to decode login response: %w", err)
		}

		cfg.Auth.Token = login.Token
		cfg.Auth.UserID = login.User.ID
		cfg.Auth.Username = login.User.Username
		cfg.Auth.TokenExpires = login.ExpiresIn

		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println("Login successful!")
		fmt.Printf("  User ID:  %s\n", login.User.ID)
		fmt.Printf("  Username: %s\n", login.User.Username)
		if login.ExpiresIn != "" {
			fmt.Printf("  Token expires: %s\n", login.ExpiresIn)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the session and clear stored auth state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cfg.Auth.Token != "" {
			client := studyhall.NewClient(cfg.Auth.Token, clientOptions(cfg)...)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := client.Auth().Logout(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: server-side logout failed: %v\n", err)
			}
		}

		cfg.Auth = ConfigAuth{}
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println("Logged out.")
		return nil
	},
}
