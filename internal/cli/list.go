package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/glorpus-work/caskcat/pkg/filter"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var outdated bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed casks",
		Long: `List installed casks with their installed and catalog versions.

Use --outdated to only show casks with a newer catalog version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, outdated)
		},
	}

	cmd.Flags().BoolVar(&outdated, "outdated", false, "Only show casks with a newer version available")

	return cmd
}

type listRow struct {
	Token     string `json:"token"`
	Installed string `json:"installed"`
	Available string `json:"available,omitempty"`
	Outdated  bool   `json:"outdated"`
}

func runList(cmd *cobra.Command, outdated bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	installed, err := newBrewExecutor(cfg).Installed(cmd.Context())
	if err != nil {
		return err
	}
	sess, _, err := loadSession(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	pred := filter.OnlyInstalled(installed)
	if outdated {
		pred = filter.OnlyOutdated(installed)
	}
	casks := filter.Chain(pred, filter.SortByName())(sess.Store().Catalog())

	rows := make([]listRow, 0, len(casks))
	for _, c := range casks {
		v := installed[c.Token]
		rows = append(rows, listRow{Token: c.Token, Installed: v, Available: c.Version, Outdated: c.IsOutdated(v)})
	}

	out := cmd.OutOrStdout()
	if cfg.Settings.OutputFormat == "json" {
		return printJSON(out, rows)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "No casks installed")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TOKEN\tINSTALLED\tAVAILABLE")
	for _, r := range rows {
		available := r.Available
		if !r.Outdated {
			available = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Token, r.Installed, available)
	}
	return tw.Flush()
}
