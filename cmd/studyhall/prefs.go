package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	studyhall "github.com/studyhall-app/studyhall-go"
)

func init() {
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage notification preferences",
	Long:  "View or change which delivery channels each notification category uses.",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show notification preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		center := studyhall.NewNotificationCenter(client, nil)
		prefs, err := center.Preferences(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		categories := make([]string, 0, len(prefs))
		for c := range prefs {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		for _, c := range categories {
			fmt.Printf("%-20s %s\n", c, formatChannels(prefs[c]))
		}
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <category> <channels>",
	Short: "Set delivery channels for a category",
	Long: "Set the delivery channels for one notification category.\n" +
		"Channels is a comma-separated list from: in-app, email, none.\n" +
		"Example: studyhall prefs set chat_message in-app,email",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := args[0]
		flags, err := parseChannels(args[1])
		if err != nil {
			return err
		}

		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		center := studyhall.NewNotificationCenter(client, nil)
		prefs, err := center.Preferences(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		prefs[category] = flags
		if err := center.UpdatePreferences(ctx, prefs); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		fmt.Printf("Set %s = %s\n", category, formatChannels(flags))
		return nil
	},
}

func parseChannels(s string) (studyhall.ChannelFlags, error) {
	var flags studyhall.ChannelFlags
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "in-app", "inapp":
			flags.InApp = true
		case "email":
			flags.Email = true
		case "none", "":
		default:
			return flags, fmt.Errorf("unknown channel %q (valid: in-app, email, none)", part)
		}
	}
	return flags, nil
}

func formatChannels(f studyhall.ChannelFlags) string {
	var parts []string
	if f.InApp {
		parts = append(parts, "in-app")
	}
	if f.Email {
		parts = append(parts, "email")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
