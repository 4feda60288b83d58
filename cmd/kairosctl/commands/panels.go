package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sardorbek21324/Kairos-team/internal/bot"
	"github.com/sardorbek21324/Kairos-team/internal/repository"
	"github.com/sardorbek21324/Kairos-team/internal/service"
	"github.com/sardorbek21324/Kairos-team/pkg/logger"
)

var panelsCmd = &cobra.Command{
	Use:   "panels",
	Short: "Manage the reporting panels",
}

var panelsPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Post both reporting panels to their configured channels",
	RunE:  runPanelsPost,
}

func init() {
	panelsCmd.AddCommand(panelsPostCmd)
}

type panelRow struct {
	Kind      string `json:"kind"`
	ChannelID uint64 `json:"channel_id"`
	Posted    bool   `json:"posted"`
	Error     string `json:"error,omitempty"`
}

func runPanelsPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
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
	policy, err := service.LoadPermissionPolicy(cfg.Workflow.PolicyFile, cfg.Roles)
	if err != nil {
		return err
	}

	workflow := service.NewWorkflowService(bot.NewGateway(session), policy, repository.NewMemoryDecisionLock(), service.WorkflowServiceConfig{
		Channels:        cfg.Channels,
		Roles:           cfg.Roles,
		OutboundTimeout: cfg.Workflow.OutboundTimeout,
		DecisionLockTTL: cfg.Workflow.DecisionLockTTL,
	}, logger.Named(logr, "workflow"))

	results := workflow.PostPanels(ctx)
	failed := 0
	rows := make([]panelRow, 0, len(results))
	for _, r := range results {
		row := panelRow{Kind: string(r.Kind), ChannelID: r.ChannelID, Posted: r.Posted}
		if r.Err != nil {
			row.Error = r.Err.Error()
			failed++
		}
		rows = append(rows, row)
	}

	switch outputFormat {
	case "json":
		if err := outputJSON(rows); err != nil {
			return err
		}
	default:
		for _, r := range results {
			fmt.Println(r.Line())
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d panels were not posted", failed, len(results))
	}
	return nil
}
