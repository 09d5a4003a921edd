package orchestrator

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/batch"
	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/executor"
	"github.com/glorpus-work/caskcat/pkg/model"
)

// New constructs an Orchestrator. Hooks can be empty if no event handling is needed.
func New(exec Executor, inv Inventory, hooks Hooks, concurrency int) *Orchestrator {
	return &Orchestrator{
		Exec:        exec,
		Inventory:   inv,
		Hooks:       hooks,
		Concurrency: concurrency,
	}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Install installs every cask that is not installed yet.
func (o *Orchestrator) Install(ctx context.Context, casks []*model.Cask) (Report, error) {
	installed, err := o.installed(ctx, false)
	if err != nil {
		return Report{}, err
	}
	guard := func(c *model.Cask) bool {
		_, ok := installed[c.Token]
		return !ok
	}
	return o.run(ctx, casks, executor.OpInstall, PhaseInstalling, guard)
}

// Update upgrades every installed cask whose catalog version is newer.
func (o *Orchestrator) Update(ctx context.Context, casks []*model.Cask) (Report, error) {
	installed, err := o.installed(ctx, true)
	if err != nil {
		return Report{}, err
	}
	return o.update(ctx, casks, installed)
}

// UpdateAll upgrades the outdated casks among catalog. Casks that are not
// installed are left out of the batch entirely, so they produce no events.
func (o *Orchestrator) UpdateAll(ctx context.Context, catalog []*model.Cask) (Report, error) {
	installed, err := o.installed(ctx, true)
	if err != nil {
		return Report{}, err
	}
	casks := make([]*model.Cask, 0, len(installed))
	for _, c := range catalog {
		if _, ok := installed[c.Token]; ok {
			casks = append(casks, c)
		}
	}
	return o.update(ctx, casks, installed)
}

func (o *Orchestrator) update(ctx context.Context, casks []*model.Cask, installed map[string]string) (Report, error) {
	guard := func(c *model.Cask) bool {
		v, ok := installed[c.Token]
		return ok && c.IsOutdated(v)
	}
	return o.run(ctx, casks, executor.OpUpgrade, PhaseUpdating, guard)
}

// Uninstall removes every cask that is installed.
func (o *Orchestrator) Uninstall(ctx context.Context, casks []*model.Cask) (Report, error) {
	installed, err := o.installed(ctx, true)
	if err != nil {
		return Report{}, err
	}
	guard := func(c *model.Cask) bool {
		_, ok := installed[c.Token]
		return ok
	}
	return o.run(ctx, casks, executor.OpUninstall, PhaseUninstalling, guard)
}

// Import installs the casks listed in a Brewfile. Entries that lookup cannot
// resolve are reported in Unknown; the rest go through Install.
func (o *Orchestrator) Import(ctx context.Context, r io.Reader, lookup func(token string) (*model.Cask, bool)) (ImportReport, error) {
	tokens, err := ParseBrewfile(r)
	if err != nil {
		return ImportReport{}, err
	}
	emit(o.Hooks, Event{Phase: PhasePlanning, Msg: "importing casks from Brewfile"})

	var rep ImportReport
	casks := make([]*model.Cask, 0, len(tokens))
	for _, token := range tokens {
		c, ok := lookup(token)
		if !ok {
			rep.Unknown = append(rep.Unknown, token)
			logger.Warn("Brewfile entry is not in the catalog", logger.Fields{"token": token})
			continue
		}
		casks = append(casks, c)
	}

	rep.Report, err = o.Install(ctx, casks)
	return rep, err
}

// ImportBundle hands a whole Brewfile to the package manager.
func (o *Orchestrator) ImportBundle(ctx context.Context, path string) error {
	return o.single(ctx, executor.OpBundleImport, PhaseImporting, path)
}

// Export writes the installed casks to a Brewfile at path.
func (o *Orchestrator) Export(ctx context.Context, path string) error {
	return o.single(ctx, executor.OpBundleExport, PhaseExporting, path)
}

func (o *Orchestrator) single(ctx context.Context, op executor.Operation, phase, path string) error {
	if o.Exec == nil {
		return errors.ErrExecutorNotConfigured
	}
	emit(o.Hooks, Event{Phase: phase, ID: path})
	res, err := o.Exec.Execute(ctx, op, path)
	if err == nil && !res.Success {
		err = errors.ErrOperationFailedWithOutput(string(op), path, res.Output)
	}
	if err != nil {
		emit(o.Hooks, Event{Phase: PhaseFailed, ID: path, Msg: err.Error()})
		return err
	}
	emit(o.Hooks, Event{Phase: PhaseDone, ID: path})
	return nil
}

// installed fetches the inventory. Without an inventory, required reports an
// error and otherwise an empty set is assumed.
func (o *Orchestrator) installed(ctx context.Context, required bool) (map[string]string, error) {
	if o.Exec == nil {
		return nil, errors.ErrExecutorNotConfigured
	}
	if o.Inventory == nil {
		if required {
			return nil, errors.Wrap(errors.ErrExecutorNotConfigured, "inventory is not configured")
		}
		return map[string]string{}, nil
	}
	emit(o.Hooks, Event{Phase: PhasePlanning, Msg: "reading installed casks"})
	return o.Inventory.Installed(ctx)
}

func (o *Orchestrator) run(ctx context.Context, casks []*model.Cask, op executor.Operation, phase string, guard func(*model.Cask) bool) (Report, error) {
	// Hook calls from worker goroutines share this lock with OnOutcome.
	var mu sync.Mutex
	locked := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		emit(o.Hooks, e)
	}

	do := func(ctx context.Context, c *model.Cask) error {
		locked(Event{Phase: phase, ID: c.Token, Msg: c.Version})
		res, err := o.Exec.Execute(ctx, op, c.Token)
		if err != nil {
			return err
		}
		if !res.Success {
			return errors.ErrOperationFailedWithOutput(string(op), c.Token, res.Output)
		}
		return nil
	}

	rep := batch.Run(ctx, casks, do, batch.Options[*model.Cask]{
		Guard: guard,
		Limit: o.Concurrency,
		Name:  func(c *model.Cask) string { return c.Token },
		OnOutcome: func(out batch.Outcome[*model.Cask]) {
			e := Event{ID: out.Item.Token}
			switch out.Status {
			case batch.StatusSkipped:
				e.Phase = PhaseSkipped
			case batch.StatusFailed:
				e.Phase, e.Msg = PhaseFailed, out.Err.Error()
			default:
				e.Phase = PhaseSucceeded
			}
			locked(e)
		},
	})

	emit(o.Hooks, Event{Phase: PhaseDone, Msg: string(op)})
	return rep, nil
}

var brewfileCask = regexp.MustCompile(`^cask\s+["']([^"']+)["']`)

// ParseBrewfile returns the cask tokens of a Brewfile in order, without
// duplicates. Other entries (brew, tap, mas, ...) are ignored.
func ParseBrewfile(r io.Reader) ([]string, error) {
	var tokens []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := brewfileCask.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		tokens = append(tokens, m[1])
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read Brewfile")
	}
	return tokens, nil
}
