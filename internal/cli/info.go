package cli

import (
	"fmt"
	"strings"

	"github.com/glorpus-work/caskcat/pkg/model"
	"github.com/spf13/cobra"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info TOKEN",
		Short: "Show details for a cask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args[0])
		},
	}

	return cmd
}

func runInfo(cmd *cobra.Command, token string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, _, err := loadSession(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	c, err := sess.Lookup(token)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Settings.OutputFormat == "json" {
		return printJSON(out, caskRows([]*model.Cask{c})[0])
	}

	_, _ = fmt.Fprintf(out, "%s: %s\n", c.Token, c.Version)
	if len(c.Names) > 0 {
		_, _ = fmt.Fprintf(out, "Name: %s\n", strings.Join(c.Names, ", "))
	}
	if c.Description != "" {
		_, _ = fmt.Fprintf(out, "Description: %s\n", c.Description)
	}
	if c.Homepage != "" {
		_, _ = fmt.Fprintf(out, "Homepage: %s\n", c.Homepage)
	}
	if c.AutoUpdates {
		_, _ = fmt.Fprintln(out, "Auto-updates: yes")
	}
	if c.PkgInstaller {
		_, _ = fmt.Fprintln(out, "Installer: pkg (may require a password)")
	}
	switch {
	case c.IsDisabled(), c.IsDeprecated():
		_, _ = fmt.Fprintf(out, "Warning: %s\n", c.Advisory)
	case c.HasCaveat():
		_, _ = fmt.Fprintf(out, "Caveats:\n%s\n", c.Advisory)
	}
	return nil
}
