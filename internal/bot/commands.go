package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Slash command names.
const (
	CommandSetupPanels        = "setup_reporting_panels"
	CommandSetupShootingPanel = "setup_shooting_panel"
	CommandSetupEditingPanel  = "setup_editing_panel"
	CommandDiagnostics        = "diagnostics"
)

type commandAPI interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Commands returns the slash command definitions. None of them work in DMs.
func Commands() []*discordgo.ApplicationCommand {
	dm := false
	return []*discordgo.ApplicationCommand{
		{
			Name:         CommandSetupPanels,
			Description:  "Post the shooting and editing report panels to their channels",
			DMPermission: &dm,
		},
		{
			Name:         CommandSetupShootingPanel,
			Description:  "Post the shooting report panel in this channel",
			DMPermission: &dm,
		},
		{
			Name:         CommandSetupEditingPanel,
			Description:  "Post the editing report panel in this channel",
			DMPermission: &dm,
		},
		{
			Name:         CommandDiagnostics,
			Description:  "Check your workflow roles and access to the report channels",
			DMPermission: &dm,
		},
	}
}

// SyncCommands overwrites the registered commands in each guild, or
// globally when guilds is empty.
func SyncCommands(ctx context.Context, api commandAPI, appID string, guilds []string, logger *zap.Logger) error {
	return overwrite(ctx, api, appID, guilds, Commands(), logger)
}

// ClearCommands removes every registered command from the same scopes.
func ClearCommands(ctx context.Context, api commandAPI, appID string, guilds []string, logger *zap.Logger) error {
	return overwrite(ctx, api, appID, guilds, []*discordgo.ApplicationCommand{}, logger)
}

func overwrite(ctx context.Context, api commandAPI, appID string, guilds []string, commands []*discordgo.ApplicationCommand, logger *zap.Logger) error {
	if appID == "" {
		return fmt.Errorf("application id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	scopes := guilds
	if len(scopes) == 0 {
		scopes = []string{""}
	}
	for _, guild := range scopes {
		created, err := api.ApplicationCommandBulkOverwrite(appID, guild, commands, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("overwrite commands for guild %q: %w", guild, err)
		}
		logger.Info("application commands synced", zap.String("guild_id", guild), zap.Int("count", len(created)))
	}
	return nil
}
