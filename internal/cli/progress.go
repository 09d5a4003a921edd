package cli

import (
	"fmt"
	"io"

	"github.com/glorpus-work/caskcat/pkg/orchestrator"
)

// progressHooks renders orchestrator events as one line each.
func progressHooks(w io.Writer) orchestrator.Hooks {
	return orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		switch e.Phase {
		case orchestrator.PhasePlanning:
			_, _ = fmt.Fprintf(w, "==> %s\n", e.Msg)
		case orchestrator.PhaseInstalling, orchestrator.PhaseUpdating, orchestrator.PhaseUninstalling:
			if e.Msg != "" {
				_, _ = fmt.Fprintf(w, "%s %s (%s)\n", e.Phase, e.ID, e.Msg)
			} else {
				_, _ = fmt.Fprintf(w, "%s %s\n", e.Phase, e.ID)
			}
		case orchestrator.PhaseExporting, orchestrator.PhaseImporting:
			_, _ = fmt.Fprintf(w, "%s %s\n", e.Phase, e.ID)
		case orchestrator.PhaseSkipped:
			_, _ = fmt.Fprintf(w, "  - %s: nothing to do\n", e.ID)
		case orchestrator.PhaseSucceeded:
			_, _ = fmt.Fprintf(w, "  ✓ %s\n", e.ID)
		case orchestrator.PhaseFailed:
			_, _ = fmt.Fprintf(w, "  ✗ %s: %s\n", e.ID, e.Msg)
		case orchestrator.PhaseDone:
			if e.ID != "" {
				_, _ = fmt.Fprintf(w, "done: %s\n", e.ID)
			}
		}
	}}
}
