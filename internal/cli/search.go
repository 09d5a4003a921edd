package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/glorpus-work/caskcat/pkg/catalog"
	"github.com/glorpus-work/caskcat/pkg/filter"
	"github.com/glorpus-work/caskcat/pkg/model"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	limit     int
	threshold float64
	expr      string
	installed bool
	outdated  bool
	byName    bool
}

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search the cask catalog",
		Long: `Search the cask catalog using fuzzy matching on tokens, names and descriptions.

Results are ordered by relevance (best matches first); ties keep catalog order.
Without a query the whole catalog is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (defaults to config)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Worst admissible score in [0, 1] (defaults to config)")
	cmd.Flags().StringVar(&opts.expr, "filter", "", "Filter expression, e.g. '!deprecated && pkg_installer'")
	cmd.Flags().BoolVar(&opts.installed, "installed", false, "Only show installed casks")
	cmd.Flags().BoolVar(&opts.outdated, "outdated", false, "Only show installed casks with a newer version")
	cmd.Flags().BoolVar(&opts.byName, "sort-name", false, "Sort results by name instead of relevance")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.limit > 0 {
		cfg.Settings.SearchLimit = opts.limit
	}
	if opts.threshold > 0 {
		cfg.Settings.SearchThreshold = opts.threshold
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var extra []catalog.Predicate
	if opts.expr != "" {
		script, err := filter.Compile(opts.expr)
		if err != nil {
			return err
		}
		extra = append(extra, script.Predicate(cmd.Context()))
	}
	if opts.installed || opts.outdated {
		installed, err := newBrewExecutor(cfg).Installed(cmd.Context())
		if err != nil {
			return err
		}
		if opts.outdated {
			extra = append(extra, filter.OnlyOutdated(installed))
		} else {
			extra = append(extra, filter.OnlyInstalled(installed))
		}
	}
	if opts.byName {
		extra = append(extra, filter.SortByName())
	}

	sess, _, err := loadSession(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	results := sess.Search(cmd.Context(), query, extra...)
	out := cmd.OutOrStdout()

	if cfg.Settings.OutputFormat == "json" {
		return printJSON(out, caskRows(results))
	}

	if len(results) == 0 {
		_, _ = fmt.Fprintf(out, "No casks found matching '%s'\n", query)
		return nil
	}
	printCaskTable(out, results)
	_, _ = fmt.Fprintf(out, "\nFound %d cask(s)\n", len(results))
	return nil
}

func printCaskTable(w io.Writer, casks []*model.Cask) {
	tw := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TOKEN\tNAME\tVERSION\tDESCRIPTION")
	for _, c := range casks {
		desc := c.Description
		if note := statusNote(c); note != "" {
			desc = strings.TrimSpace(note + " " + desc)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Token, c.DisplayName(), c.Version, truncate(desc, MaxDescriptionLength))
	}
	_ = tw.Flush()
}

func statusNote(c *model.Cask) string {
	switch {
	case c.IsDisabled():
		return "[disabled]"
	case c.IsDeprecated():
		return "[deprecated]"
	default:
		return ""
	}
}

// caskRow is the JSON shape of a cask in command output.
type caskRow struct {
	*model.Cask
	Advisory string `json:"advisory,omitempty"`
	Status   string `json:"status,omitempty"`
}

func caskRows(casks []*model.Cask) []caskRow {
	rows := make([]caskRow, 0, len(casks))
	for _, c := range casks {
		row := caskRow{Cask: c, Advisory: c.Advisory.String()}
		if c.Advisory.Kind != model.AdvisoryNone {
			row.Status = c.Advisory.Kind.String()
		}
		rows = append(rows, row)
	}
	return rows
}
