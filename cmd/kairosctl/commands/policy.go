package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sardorbek21324/Kairos-team/internal/service"
	"github.com/sardorbek21324/Kairos-team/pkg/config"
)

var policyFile string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the permission table",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every rule with its resolved role IDs",
	Long: `Load the permission table the bot would use and print each
(scope, stage) rule together with the guild role IDs it resolves to.

A rule that resolves to no role IDs denies everyone.`,
	RunE: runPolicyShow,
}

func init() {
	policyShowCmd.Flags().StringVar(&policyFile, "file", "",
		"Policy file to load (default from POLICY_FILE or the built-in table)")

	policyCmd.AddCommand(policyShowCmd)
}

type policyRow struct {
	Scope   string   `json:"scope"`
	Stage   string   `json:"stage"`
	Roles   []string `json:"roles"`
	RoleIDs []uint64 `json:"role_ids"`
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path := policyFile
	if path == "" {
		path = cfg.Workflow.PolicyFile
	}
	policy, err := service.LoadPermissionPolicy(path, cfg.Roles)
	if err != nil {
		return err
	}

	rules := policy.Rules()
	rows := make([]policyRow, 0, len(rules))
	for _, rule := range rules {
		ids := policy.RequiredRoles(rule.Scope, rule.Stage)
		if ids == nil {
			ids = []uint64{}
		}
		rows = append(rows, policyRow{
			Scope:   string(rule.Scope),
			Stage:   string(rule.Stage),
			Roles:   rule.Roles,
			RoleIDs: ids,
		})
	}

	switch outputFormat {
	case "json":
		return outputJSON(rows)
	default:
		source := "built-in"
		if path != "" {
			source = path
		}
		fmt.Printf("Permission table (%s, %d rules):\n\n", source, len(rows))
		for _, r := range rows {
			ids := make([]string, len(r.RoleIDs))
			for i, id := range r.RoleIDs {
				ids[i] = fmt.Sprintf("%d", id)
			}
			resolved := strings.Join(ids, ", ")
			if resolved == "" {
				resolved = "nobody"
			}
			fmt.Printf("  %-8s %-8s %-28s -> %s\n", r.Scope, r.Stage,
				strings.Join(r.Roles, ","), resolved)
		}
	}
	return nil
}
