package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	studyhall "github.com/studyhall-app/studyhall-go"
)

var chatVerbose bool

func init() {
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Log connection lifecycle events")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat <group-id>",
	Short: "Join a group room and chat in real time",
	Long: "Connect to the real-time service, join the group room, and stream messages.\n" +
		"Type a line to send it; Ctrl+C leaves the room and disconnects.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID := args[0]
		client := getClient()

		logger := clog.NewWithOptions(os.Stderr, clog.Options{ReportTimestamp: true})
		if chatVerbose {
			logger.SetLevel(clog.DebugLevel)
		} else {
			logger.SetLevel(clog.WarnLevel)
		}

		rc := client.Realtime().New(&studyhall.RealtimeConfig{Logger: logger})

		rc.OnConnected(func(p studyhall.ConnectedPayload) {
			fmt.Printf("* connected as %s\n", p.Username)
		})
		rc.OnDisconnected(func() {
			logger.Warn("connection lost", "state", rc.State())
		})
		rc.OnNewMessage(func(m studyhall.NewMessagePayload) {
			if m.GroupID != groupID {
				return
			}
			sender := m.SenderName
			if sender == "" {
				sender = m.SenderID
			}
			fmt.Printf("%s: %s\n", sender, m.Content)
		})
		rc.OnUserJoined(func(p studyhall.PresencePayload) {
			if p.GroupID == groupID {
				fmt.Printf("* %s joined\n", p.Username)
			}
		})
		rc.OnUserLeft(func(p studyhall.PresencePayload) {
			if p.GroupID == groupID {
				fmt.Printf("* %s left\n", p.Username)
			}
		})
		rc.OnUserTyping(func(p studyhall.PresencePayload) {
			if p.GroupID == groupID {
				fmt.Printf("* %s is typing...\n", p.Username)
			}
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := rc.Subscribe(ctx, studyhall.GroupRoom, groupID); err != nil {
			return fmt.Errorf("subscribe failed: %w", err)
		}
		if err := rc.Connect(ctx); err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		defer rc.Disconnect()

		// If the connection settles in Failed (attempts exhausted), fall back
		// to polling the chat history so the session stays usable.
		go watchConnection(ctx, rc, client, groupID, logger)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		lines := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
			close(lines)
		}()

		fmt.Printf("Joined %s. Type to chat, Ctrl+C to leave.\n", groupID)
		for {
			select {
			case <-sigCh:
				fmt.Println("\nLeaving...")
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				text := strings.TrimSpace(line)
				if text == "" {
					continue
				}
				rc.StartTyping(ctx, groupID)
				sendCtx, sendCancel := context.WithTimeout(ctx, 10*time.Second)
				result, err := client.Groups().SendMessage(sendCtx, groupID, text)
				sendCancel()
				rc.StopTyping(ctx, groupID)
				if err != nil {
					logger.Error("send failed", "err", err)
					continue
				}
				if !result.OK {
					logger.Error("send rejected", "err", apiError(result))
				}
			}
		}
	},
}

// watchConnection starts the polling fallback when reconnection gives up and
// stops it again when an explicit reconnect succeeds.
func watchConnection(ctx context.Context, rc *studyhall.RealtimeClient, client *studyhall.Client, groupID string, logger *clog.Logger) {
	feed := "chat:" + groupID
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		switch rc.State() {
		case studyhall.StateFailed:
			if rc.Poller().Running(feed) {
				continue
			}
			logger.Warn("realtime unavailable, polling chat history", "err", rc.LastError())
			rc.Poller().Start(feed, 15*time.Second, func() {
				pollCtx, pollCancel := context.WithTimeout(ctx, 10*time.Second)
				defer pollCancel()
				result, err := client.Groups().Messages(pollCtx, groupID, &studyhall.PaginationOptions{Limit: 5})
				if err != nil || !result.OK {
					return
				}
				var msgs []studyhall.Message
				if result.Decode(&msgs) != nil {
					return
				}
				for i := len(msgs) - 1; i >= 0; i-- {
					fmt.Printf("(poll) %s: %s\n", msgs[i].SenderName, msgs[i].Content)
				}
			})
		case studyhall.StateConnected:
			if rc.Poller().Running(feed) {
				rc.Poller().Stop(feed)
				logger.Info("realtime restored, polling stopped")
			}
		}
	}
}
