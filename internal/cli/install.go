package cli

import (
	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "install TOKEN...",
		Short: "Install casks",
		Long: `Install one or more casks from the catalog.
Casks that are already installed are skipped. A failing cask does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", -1, "Number of parallel operations (0=unbounded, defaults to config)")

	return cmd
}

func runInstall(cmd *cobra.Command, tokens []string, concurrency int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency >= 0 {
		cfg.Settings.MaxConcurrent = concurrency
	}

	sess, _, err := loadSession(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	casks, err := resolveCasks(sess, tokens)
	if err != nil {
		return err
	}
	for _, c := range casks {
		if c.IsDisabled() {
			logger.Warn("Cask is disabled and will likely fail to install", logger.Fields{"token": c.Token, "advisory": c.Advisory.String()})
		}
	}

	orch := newOrchestrator(cfg, cmd.OutOrStdout())
	rep, err := orch.Install(cmd.Context(), casks)
	if err != nil {
		return err
	}
	return reportError("install", rep)
}
