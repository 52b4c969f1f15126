package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/pyautofix/internal/application"
)

var planCmd = &cobra.Command{
	Use:   "plan <installation-id>",
	Short: "Show the plan an installation resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid installation id %q", args[0])
		}

		cfg, err := configFor(cmd.Context())
		if err != nil {
			return err
		}
		plans, err := application.NewPlanResolver(application.PlanConfig{
			ProInstallations: cfg.ProInstallations,
			PlansFile:        cfg.PlansFile,
			Override:         cfg.PlanOverride,
			AllowOverride:    cfg.IsTest(),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "installation %d: %s\n", id, plans.PlanFor(id))
		return nil
	},
}
