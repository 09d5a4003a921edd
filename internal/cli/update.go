package cli

import (
	"fmt"

	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "update [TOKEN...]",
		Short: "Update casks",
		Long: `Upgrade installed casks whose catalog version is newer than the installed one.

Use --all to consider every installed cask. If no casks are specified and --all is not used,
the command will return an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, args, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Update all installed casks")

	return cmd
}

func runUpdate(cmd *cobra.Command, tokens []string, all bool) error {
	if !all && len(tokens) == 0 {
		return fmt.Errorf("nothing to update: %w", errors.ErrNoCasksSpecified)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, _, err := loadSession(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	orch := newOrchestrator(cfg, cmd.OutOrStdout())
	var rep orchestrator.Report
	if all {
		rep, err = orch.UpdateAll(cmd.Context(), sess.Store().Catalog())
	} else {
		casks, resolveErr := resolveCasks(sess, tokens)
		if resolveErr != nil {
			return resolveErr
		}
		rep, err = orch.Update(cmd.Context(), casks)
	}
	if err != nil {
		return err
	}
	if len(rep.Succeeded) == 0 && rep.OK() {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "All casks are up to date")
	}
	return reportError("update", rep)
}
