package cli

import (
	"fmt"
	"os"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/model"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export installed casks to a Brewfile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := newOrchestrator(cfg, cmd.OutOrStdout()).Export(cmd.Context(), args[0]); err != nil {
				return err
			}
			logger.Success("Brewfile written", logger.Fields{"path": args[0]})
			return nil
		},
	}

	return cmd
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	var bundle bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Install the casks listed in a Brewfile",
		Long: `Install every cask entry of a Brewfile that is in the catalog and not yet installed.

With --bundle the whole Brewfile, including formulae and taps, is handed to brew bundle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], bundle)
		},
	}

	cmd.Flags().BoolVar(&bundle, "bundle", false, "Let brew bundle process the whole file")

	return cmd
}

func runImport(cmd *cobra.Command, path string, bundle bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch := newOrchestrator(cfg, cmd.OutOrStdout())

	if bundle {
		return orch.ImportBundle(cmd.Context(), path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open Brewfile: %w", err)
	}
	defer func() { _ = f.Close() }()

	sess, _, err := loadSession(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	lookup := func(token string) (*model.Cask, bool) { return sess.Store().Lookup(token) }

	rep, err := orch.Import(cmd.Context(), f, lookup)
	if err != nil {
		return err
	}
	for _, token := range rep.Unknown {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  ? %s: not in catalog\n", token)
	}
	return reportError("import", rep.Report)
}
