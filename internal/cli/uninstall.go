package cli

import (
	"github.com/spf13/cobra"
)

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall TOKEN...",
		Short: "Uninstall casks",
		Long: `Uninstall one or more installed casks.
Casks that are not installed are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd, args)
		},
	}

	return cmd
}

func runUninstall(cmd *cobra.Command, tokens []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, _, err := loadSession(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	casks, err := resolveCasks(sess, tokens)
	if err != nil {
		return err
	}

	rep, err := newOrchestrator(cfg, cmd.OutOrStdout()).Uninstall(cmd.Context(), casks)
	if err != nil {
		return err
	}
	return reportError("uninstall", rep)
}
