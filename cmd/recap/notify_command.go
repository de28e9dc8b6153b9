package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recap/internal/meeting"
	"recap/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification to the configured webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.WebhookURL == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No webhook configured; nothing to send")
				return nil
			}
			service := notifications.NewService(cfg)
			err = service.Publish(cmd.Context(), notifications.EventJobCompleted, notifications.Payload{
				"meeting_name": "recap-test-notification.mp4",
				"duration":     "25:00",
				"summary":      "This is a test notification from the recap CLI.",
				"action_items": []meeting.ActionItem{
					{Action: "Confirm the webhook renders correctly", Owner: "You", DueDate: "Today"},
				},
			})
			if err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
