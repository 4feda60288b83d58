package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sardorbek21324/Kairos-team/pkg/config"
	"github.com/sardorbek21324/Kairos-team/pkg/logger"
)

var (
	// outputFormat controls output format (text, json).
	outputFormat string

	// verbose raises the log level to debug.
	verbose bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "kairosctl",
	Short: "Kairos reporting bot operator CLI",
	Long: `kairosctl performs one-off maintenance for the Kairos reporting bot.

It reads the same environment as the bot and the lead API, so it can sync
slash commands, deploy reporting panels, inspect the permission table and
check the lead notification channel without starting either process.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false,
		"Enable debug logging",
	)

	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(panelsCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(leadCmd)
}

// loadEnv reads configuration and builds the CLI logger.
func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logr, nil
}

// restSession opens a REST-only Discord session. The gateway websocket is
// never connected.
func restSession(cfg *config.Config) (*discordgo.Session, error) {
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set")
	}
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

// outputJSON prints v as indented JSON.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
