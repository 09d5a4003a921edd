package cli

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/freshness"
	"github.com/glorpus-work/caskcat/pkg/source"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog cache",
		Long:  "Show information about, locate or remove the cached catalog",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the cached catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			snap := source.NewSnapshot(cfg.Settings.CacheDir)
			if err := snap.Remove(); err != nil {
				return err
			}
			logger.Success("Catalog cache removed", logger.Fields{"path": snap.Path})
			return nil
		},
	}
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			snap := source.NewSnapshot(cfg.Settings.CacheDir)
			policy := freshness.NewPolicy(cfg.Cadence())
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintf(out, "Snapshot: %s\n", snap.Path)
			_, _ = fmt.Fprintf(out, "Cadence: %s\n", policy.Cadence)

			age, err := policy.Age(snap.Path)
			if goerrors.Is(err, errors.ErrCacheNotFound) {
				_, _ = fmt.Fprintln(out, "Status: missing")
				return nil
			}
			if err != nil {
				return err
			}
			status := "stale"
			if policy.ShouldLoadFromCache(snap.Path) {
				status = "fresh"
			}
			_, _ = fmt.Fprintf(out, "Age: %s\n", age.Round(time.Minute))
			_, _ = fmt.Fprintf(out, "Status: %s\n", status)
			return nil
		},
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cfg.Settings.CacheDir)
			return nil
		},
	}
}
