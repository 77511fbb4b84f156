package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	studyhall "github.com/studyhall-app/studyhall-go"
)

var (
	notifyListLimit  int
	notifyListJSON   bool
	notifyWatchPoll  time.Duration
	notifyWatchDebug bool
)

func init() {
	notifyListCmd.Flags().IntVarP(&notifyListLimit, "limit", "n", 0, "Maximum number of notifications to return")
	notifyListCmd.Flags().BoolVar(&notifyListJSON, "json", false, "Output raw JSON")

	notifyWatchCmd.Flags().DurationVar(&notifyWatchPoll, "poll", time.Minute, "Poll fallback interval")
	notifyWatchCmd.Flags().BoolVarP(&notifyWatchDebug, "verbose", "v", false, "Log connection lifecycle events")

	notifyCmd.AddCommand(notifyListCmd)
	notifyCmd.AddCommand(notifyUnreadCmd)
	notifyCmd.AddCommand(notifyReadCmd)
	notifyCmd.AddCommand(notifyReadAllCmd)
	notifyCmd.AddCommand(notifyTestCmd)
	notifyCmd.AddCommand(notifyWatchCmd)
	rootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage notifications",
	Long:  "List, read, and watch StudyHall notifications.",
}

var notifyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var opts *studyhall.PaginationOptions
		if notifyListLimit > 0 {
			opts = &studyhall.PaginationOptions{Page: 1, Limit: notifyListLimit}
		}

		result, err := client.Notifications().List(ctx, opts)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if !result.OK {
			return apiError(result)
		}

		if notifyListJSON {
			fmt.Println(string(result.Data))
			return nil
		}

		var page studyhall.NotificationPage
		if err := result.Decode(&page); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(page.Items) == 0 {
			fmt.Println("No notifications.")
			return nil
		}
		for _, n := range page.Items {
			marker := "*"
			if n.Read {
				marker = " "
			}
			fmt.Printf("%s %s  [%s] %s\n", marker, n.ID, n.CreatedAt, n.Title)
		}
		return nil
	},
}

var notifyUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show the unread notification count",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		center := studyhall.NewNotificationCenter(client, nil)
		count, err := center.Unread(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Println(count)
		return nil
	},
}

var notifyReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		center := studyhall.NewNotificationCenter(client, nil)
		if err := center.MarkAsRead(ctx, args[0]); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Printf("Marked %s as read\n", args[0])
		return nil
	},
}

var notifyReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark all notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		center := studyhall.NewNotificationCenter(client, nil)
		if err := center.MarkAllAsRead(ctx); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Println("All notifications marked as read.")
		return nil
	},
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send yourself a test notification",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		center := studyhall.NewNotificationCenter(client, nil)
		if err := center.SendTest(ctx); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Println("Test notification sent.")
		return nil
	},
}

var notifyWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream notifications as they arrive",
	Long: "Subscribe to the dashboard feed and print notifications as they are pushed.\n" +
		"Falls back to polling when the real-time connection cannot be kept up.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		logger := clog.NewWithOptions(os.Stderr, clog.Options{ReportTimestamp: true})
		if notifyWatchDebug {
			logger.SetLevel(clog.DebugLevel)
		} else {
			logger.SetLevel(clog.WarnLevel)
		}

		center := studyhall.NewNotificationCenter(client, &studyhall.NotificationCenterOptions{
			OnAlert: func(n studyhall.Notification) {
				fmt.Printf("[%s] %s\n", n.CreatedAt, n.Title)
				if n.Body != "" {
					fmt.Printf("  %s\n", n.Body)
				}
			},
			Logger: logger,
		})

		rc := client.Realtime().New(&studyhall.RealtimeConfig{Logger: logger})
		center.Attach(rc)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := rc.Subscribe(ctx, studyhall.DashboardFeed, ""); err != nil {
			return fmt.Errorf("subscribe failed: %w", err)
		}
		if err := rc.Connect(ctx); err != nil {
			logger.Warn("realtime unavailable, relying on polling", "err", err)
		}
		defer rc.Disconnect()

		// The poll fallback keeps the unread count moving even with no socket.
		center.StartPolling(notifyWatchPoll)
		defer center.StopPolling()

		count, err := center.Unread(ctx)
		if err == nil {
			fmt.Printf("Watching notifications (%d unread). Ctrl+C to stop.\n", count)
		} else {
			fmt.Println("Watching notifications. Ctrl+C to stop.")
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nStopping...")
		return nil
	},
}
