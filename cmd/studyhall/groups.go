package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	studyhall "github.com/studyhall-app/studyhall-go"
)

var (
	groupsListJSON bool

	groupsCreateDescription string
	groupsCreateSubject     string

	groupsMessagesLimit int
	groupsMessagesJSON  bool
)

func init() {
	groupsListCmd.Flags().BoolVar(&groupsListJSON, "json", false, "Output raw JSON")

	groupsCreateCmd.Flags().StringVar(&groupsCreateDescription, "description", "", "Group description")
	groupsCreateCmd.Flags().StringVar(&groupsCreateSubject, "subject", "", "Group subject (e.g. biology)")

	groupsMessagesCmd.Flags().IntVarP(&groupsMessagesLimit, "limit", "n", 0, "Maximum number of messages to return")
	groupsMessagesCmd.Flags().BoolVar(&groupsMessagesJSON, "json", false, "Output raw JSON")

	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsCreateCmd)
	groupsCmd.AddCommand(groupsJoinCmd)
	groupsCmd.AddCommand(groupsLeaveCmd)
	groupsCmd.AddCommand(groupsMessagesCmd)
	rootCmd.AddCommand(groupsCmd)
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage study groups",
	Long:  "List, create, join, and leave study groups, and read their chat history.",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your study groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Groups().List(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		if groupsListJSON {
			fmt.Println(string(result.Data))
			return nil
		}

		var groups []studyhall.Group
		if err := result.Decode(&groups); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(groups) == 0 {
			fmt.Println("No groups. Create one with 'studyhall groups create <name>'.")
			return nil
		}
		for _, g := range groups {
			line := fmt.Sprintf("%s  %s", g.ID, g.Name)
			if g.Subject != "" {
				line += fmt.Sprintf("  [%s]", g.Subject)
			}
			if g.MemberCount > 0 {
				line += fmt.Sprintf("  (%d members)", g.MemberCount)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a study group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Groups().Create(ctx, &studyhall.CreateGroupOptions{
			Name:        args[0],
			Description: groupsCreateDescription,
			Subject:     groupsCreateSubject,
		})
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		var group studyhall.Group
		if err := result.Decode(&group); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		fmt.Printf("Created group %s (%s)\n", group.Name, group.ID)
		return nil
	},
}

var groupsJoinCmd = &cobra.Command{
	Use:   "join <group-id>",
	Short: "Join a study group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Groups().Join(ctx, args[0])
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}
		fmt.Printf("Joined group %s\n", args[0])
		return nil
	},
}

var groupsLeaveCmd = &cobra.Command{
	Use:   "leave <group-id>",
	Short: "Leave a study group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.Groups().Leave(ctx, args[0])
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}
		fmt.Printf("Left group %s\n", args[0])
		return nil
	},
}

var groupsMessagesCmd = &cobra.Command{
	Use:   "messages <group-id>",
	Short: "Show recent messages in a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var opts *studyhall.PaginationOptions
		if groupsMessagesLimit > 0 {
			opts = &studyhall.PaginationOptions{Limit: groupsMessagesLimit}
		}

		result, err := client.Groups().Messages(ctx, args[0], opts)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		if groupsMessagesJSON {
			fmt.Println(string(result.Data))
			return nil
		}

		var msgs []studyhall.Message
		if err := result.Decode(&msgs); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		for _, m := range msgs {
			sender := m.SenderName
			if sender == "" {
				sender = m.SenderID
			}
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt, sender, m.Content)
		}
		return nil
	},
}
