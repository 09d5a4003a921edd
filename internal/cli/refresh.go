package cli

import (
	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the refresh command.
func NewRefreshCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the cask catalog",
		Long: `Download the cask catalog if the cached copy is older than the configured
update cadence. Use --force to download regardless of age.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, res, err := loadSession(cmd.Context(), cfg, force)
			if err != nil {
				return err
			}
			logger.Success("Catalog ready", logger.Fields{"source": string(res.Origin), "casks": res.Casks})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download even if the cached catalog is fresh")

	return cmd
}
