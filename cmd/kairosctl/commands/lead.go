package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sardorbek21324/Kairos-team/pkg/telegram"
)

var leadMessage string

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Check the lead notification channel",
}

var leadPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a test message to the configured Telegram chat",
	RunE:  runLeadPing,
}

func init() {
	leadPingCmd.Flags().StringVar(&leadMessage, "message",
		"Kairos lead API test message", "Text to send")

	leadCmd.AddCommand(leadPingCmd)
}

func runLeadPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logr, err := loadEnv()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	opts := []telegram.Option{}
	if cfg.Lead.TelegramAPIBase != "" {
		opts = append(opts, telegram.WithBaseURL(cfg.Lead.TelegramAPIBase))
	}
	client := telegram.NewClient(cfg.Lead.BotToken, cfg.Lead.TelegramTimeout, opts...)
	if !client.Configured() || cfg.Lead.TargetChatID == "" {
		return fmt.Errorf("TG_BOT_TOKEN and TARGET_CHAT_ID must be set")
	}

	if err := client.SendMessage(ctx, cfg.Lead.TargetChatID, leadMessage); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}

	switch outputFormat {
	case "json":
		return outputJSON(map[string]interface{}{
			"chat_id": cfg.Lead.TargetChatID,
			"sent":    true,
		})
	default:
		fmt.Printf("Sent test message to chat %s\n", cfg.Lead.TargetChatID)
	}
	return nil
}
