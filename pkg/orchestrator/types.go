//go:generate mockgen -destination=./mocks/orchestrator.go . Executor,Inventory

package orchestrator

import (
	"context"

	"github.com/glorpus-work/caskcat/pkg/batch"
	"github.com/glorpus-work/caskcat/pkg/executor"
	"github.com/glorpus-work/caskcat/pkg/model"
)

// Executor is the subset of the package manager used to run operations.
type Executor interface {
	Execute(ctx context.Context, op executor.Operation, target string) (executor.Result, error)
}

// Inventory reports installed casks and their installed versions.
type Inventory interface {
	Installed(ctx context.Context) (map[string]string, error)
}

// Orchestrator runs package-manager operations over many casks at once.
type Orchestrator struct {
	Exec      Executor
	Inventory Inventory
	Hooks     Hooks // Hooks for progress and event notifications
	// Concurrency caps parallel operations. Zero means one goroutine per cask.
	Concurrency int
}

// Event phases.
const (
	PhasePlanning     = "planning"
	PhaseInstalling   = "installing"
	PhaseUpdating     = "updating"
	PhaseUninstalling = "uninstalling"
	PhaseExporting    = "exporting"
	PhaseImporting    = "importing"
	PhaseSkipped      = "skipped"
	PhaseSucceeded    = "succeeded"
	PhaseFailed       = "failed"
	PhaseDone         = "done"
)

// Event represents a simple progress notification.
type Event struct {
	Phase string
	ID    string // cask token, or file path for bundle operations
	Msg   string
}

// Hooks carries callbacks for progress events. OnEvent calls are serialized
// within one orchestrator call.
type Hooks struct {
	OnEvent func(Event)
}

// Report is the outcome of one batch call.
type Report = batch.Report[*model.Cask]

// ImportReport extends Report with the Brewfile entries that are not in the catalog.
type ImportReport struct {
	Report
	Unknown []string
}
