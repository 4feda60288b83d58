package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sardorbek21324/Kairos-team/internal/bot"
)

var commandGuilds []string

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage the bot's slash commands",
}

var commandsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Register the slash commands",
	Long: `Overwrite the registered slash commands with the current set.

Commands are registered in each guild from --guild or COMMAND_GUILD_IDS,
or globally when neither is set.`,
	RunE: runCommandsSync,
}

var commandsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every registered slash command",
	RunE:  runCommandsClear,
}

func init() {
	commandsCmd.PersistentFlags().StringSliceVar(&commandGuilds, "guild", nil,
		"Guild ID to register in (repeatable, default from config)")

	commandsCmd.AddCommand(commandsSyncCmd)
	commandsCmd.AddCommand(commandsClearCmd)
}

func runCommandsSync(cmd *cobra.Command, args []string) error {
	return overwriteCommands(cmd.Context(), false)
}

func runCommandsClear(cmd *cobra.Command, args []string) error {
	return overwriteCommands(cmd.Context(), true)
}

func overwriteCommands(ctx context.Context, remove bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logr, err := loadEnv()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	session, err := restSession(cfg)
	if err != nil {
		return err
	}
	if cfg.Discord.AppID == "" {
		return fmt.Errorf("DISCORD_APP_ID is not set")
	}

	guilds := commandGuilds
	if len(guilds) == 0 {
		guilds = cfg.Discord.CommandGuilds
	}

	if remove {
		err = bot.ClearCommands(ctx, session, cfg.Discord.AppID, guilds, logr)
	} else {
		err = bot.SyncCommands(ctx, session, cfg.Discord.AppID, guilds, logr)
	}
	if err != nil {
		return err
	}

	scope := "global"
	if len(guilds) > 0 {
		scope = "guilds " + strings.Join(guilds, ", ")
	}
	names := make([]string, 0)
	if !remove {
		for _, c := range bot.Commands() {
			names = append(names, c.Name)
		}
	}

	switch outputFormat {
	case "json":
		return outputJSON(map[string]interface{}{
			"scope":    scope,
			"commands": names,
		})
	default:
		if remove {
			fmt.Printf("Cleared slash commands (%s)\n", scope)
			return nil
		}
		fmt.Printf("Synced %d slash commands (%s):\n", len(names), scope)
		for _, name := range names {
			fmt.Printf("  /%s\n", name)
		}
	}
	return nil
}
