package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/executor"
	"github.com/glorpus-work/caskcat/pkg/model"
	ocmocks "github.com/glorpus-work/caskcat/pkg/orchestrator/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func casks(tokens ...string) []*model.Cask {
	out := make([]*model.Cask, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, &model.Cask{Token: t, Version: "2.0.0"})
	}
	return out
}

func tokensOf(cs []*model.Cask) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Token)
	}
	return out
}

func TestInstall_SkipsInstalledAndIsolatesFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	inv := ocmocks.NewMockInventory(ctrl)

	inv.EXPECT().Installed(gomock.Any()).Return(map[string]string{"firefox": "1.0.0"}, nil).Times(1)
	exec.EXPECT().Execute(gomock.Any(), executor.OpInstall, "slack").
		Return(executor.Result{Success: true, Output: "installed"}, nil).Times(1)
	exec.EXPECT().Execute(gomock.Any(), executor.OpInstall, "zoom").
		Return(executor.Result{Success: false, Output: "Error: download failed"}, nil).Times(1)
	exec.EXPECT().Execute(gomock.Any(), executor.OpInstall, "iterm2").
		Return(executor.Result{Success: true}, nil).Times(1)

	var events []Event
	orch := New(exec, inv, Hooks{OnEvent: func(e Event) { events = append(events, e) }}, 0)

	rep, err := orch.Install(context.Background(), casks("firefox", "slack", "zoom", "iterm2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"slack", "iterm2"}, tokensOf(rep.Succeeded))
	assert.Equal(t, []string{"firefox"}, tokensOf(rep.Skipped))
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "zoom", rep.Failed[0].Item.Token)
	assert.ErrorIs(t, rep.Failed[0].Err, errors.ErrOperationFailed)
	assert.Contains(t, rep.Failed[0].Err.Error(), "Error: download failed")

	require.NotEmpty(t, events)
	assert.Equal(t, PhasePlanning, events[0].Phase)
	assert.Equal(t, PhaseDone, events[len(events)-1].Phase)

	phases := map[string][]string{}
	for _, e := range events {
		if e.ID != "" {
			phases[e.ID] = append(phases[e.ID], e.Phase)
		}
	}
	assert.Equal(t, []string{PhaseSkipped}, phases["firefox"])
	assert.Equal(t, []string{PhaseInstalling, PhaseFailed}, phases["zoom"])
	assert.Equal(t, []string{PhaseInstalling, PhaseSucceeded}, phases["slack"])
}

func TestInstall_WithoutInventoryInstallsAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	exec.EXPECT().Execute(gomock.Any(), executor.OpInstall, gomock.Any()).
		Return(executor.Result{Success: true}, nil).Times(2)

	rep, err := (&Orchestrator{Exec: exec}).Install(context.Background(), casks("a", "b"))
	require.NoError(t, err)
	assert.Len(t, rep.Succeeded, 2)
}

func TestInstall_ExecutorErrorIsItemFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	exec.EXPECT().Execute(gomock.Any(), executor.OpInstall, "a").
		Return(executor.Result{}, fmt.Errorf("brew not found")).Times(1)
	exec.EXPECT().Execute(gomock.Any(), executor.OpInstall, "b").
		Return(executor.Result{Success: true}, nil).Times(1)

	rep, err := (&Orchestrator{Exec: exec}).Install(context.Background(), casks("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, tokensOf(rep.Succeeded))
	require.Len(t, rep.Failed, 1)
	assert.EqualError(t, rep.Failed[0].Err, "brew not found")
}

func TestUpdate_OnlyOutdated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	inv := ocmocks.NewMockInventory(ctrl)

	inv.EXPECT().Installed(gomock.Any()).Return(map[string]string{
		"firefox": "1.0.0", // outdated
		"slack":   "2.0.0", // current
	}, nil).Times(1)
	exec.EXPECT().Execute(gomock.Any(), executor.OpUpgrade, "firefox").
		Return(executor.Result{Success: true}, nil).Times(1)

	orch := &Orchestrator{Exec: exec, Inventory: inv, Concurrency: 1}
	rep, err := orch.Update(context.Background(), casks("firefox", "slack", "zoom"))
	require.NoError(t, err)
	assert.Equal(t, []string{"firefox"}, tokensOf(rep.Succeeded))
	assert.Equal(t, []string{"slack", "zoom"}, tokensOf(rep.Skipped))
}

func TestUpdateAll_ReadsInventoryOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	inv := ocmocks.NewMockInventory(ctrl)

	inv.EXPECT().Installed(gomock.Any()).
		Return(map[string]string{"firefox": "1.0.0", "slack": "2.0.0"}, nil).Times(1)
	exec.EXPECT().Execute(gomock.Any(), executor.OpUpgrade, "firefox").
		Return(executor.Result{Success: true}, nil).Times(1)

	var skipped []string
	orch := New(exec, inv, Hooks{OnEvent: func(e Event) {
		if e.Phase == PhaseSkipped {
			skipped = append(skipped, e.ID)
		}
	}}, 0)

	rep, err := orch.UpdateAll(context.Background(), casks("firefox", "zoom", "slack", "iterm2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"firefox"}, tokensOf(rep.Succeeded))
	assert.Equal(t, []string{"slack"}, tokensOf(rep.Skipped))
	assert.Len(t, rep.Outcomes, 2, "casks that are not installed stay out of the batch")
	assert.Equal(t, []string{"slack"}, skipped)
}

func TestUpdate_InventoryRequired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orch := &Orchestrator{Exec: ocmocks.NewMockExecutor(ctrl)}
	_, err := orch.Update(context.Background(), casks("firefox"))
	assert.ErrorIs(t, err, errors.ErrExecutorNotConfigured)
}

func TestUpdate_InventoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inv := ocmocks.NewMockInventory(ctrl)
	inv.EXPECT().Installed(gomock.Any()).Return(nil, fmt.Errorf("brew list failed")).Times(1)

	orch := &Orchestrator{Exec: ocmocks.NewMockExecutor(ctrl), Inventory: inv}
	_, err := orch.Update(context.Background(), casks("firefox"))
	assert.EqualError(t, err, "brew list failed")
}

func TestUninstall_OnlyInstalled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	inv := ocmocks.NewMockInventory(ctrl)
	inv.EXPECT().Installed(gomock.Any()).Return(map[string]string{"slack": "2.0.0"}, nil)
	exec.EXPECT().Execute(gomock.Any(), executor.OpUninstall, "slack").
		Return(executor.Result{Success: true}, nil).Times(1)

	rep, err := New(exec, inv, Hooks{}, 0).Uninstall(context.Background(), casks("firefox", "slack"))
	require.NoError(t, err)
	assert.Equal(t, []string{"slack"}, tokensOf(rep.Succeeded))
	assert.Equal(t, []string{"firefox"}, tokensOf(rep.Skipped))
}

func TestNoExecutor(t *testing.T) {
	orch := &Orchestrator{}
	_, err := orch.Install(context.Background(), casks("a"))
	assert.ErrorIs(t, err, errors.ErrExecutorNotConfigured)
	assert.ErrorIs(t, orch.Export(context.Background(), "/tmp/Brewfile"), errors.ErrExecutorNotConfigured)
}

func TestImport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	inv := ocmocks.NewMockInventory(ctrl)
	inv.EXPECT().Installed(gomock.Any()).Return(map[string]string{"firefox": "2.0.0"}, nil)
	exec.EXPECT().Execute(gomock.Any(), executor.OpInstall, "slack").
		Return(executor.Result{Success: true}, nil).Times(1)

	known := map[string]*model.Cask{}
	for _, c := range casks("firefox", "slack") {
		known[c.Token] = c
	}
	lookup := func(token string) (*model.Cask, bool) {
		c, ok := known[token]
		return c, ok
	}

	brewfile := `tap "homebrew/bundle"
brew "git"
cask "firefox"
cask "slack", greedy: true
cask "no-such-cask"
`
	rep, err := New(exec, inv, Hooks{}, 0).Import(context.Background(), strings.NewReader(brewfile), lookup)
	require.NoError(t, err)
	assert.Equal(t, []string{"no-such-cask"}, rep.Unknown)
	assert.Equal(t, []string{"slack"}, tokensOf(rep.Succeeded))
	assert.Equal(t, []string{"firefox"}, tokensOf(rep.Skipped))
}

func TestExport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	exec.EXPECT().Execute(gomock.Any(), executor.OpBundleExport, "/tmp/Brewfile").
		Return(executor.Result{Success: true}, nil).Times(1)
	exec.EXPECT().Execute(gomock.Any(), executor.OpBundleExport, "/readonly/Brewfile").
		Return(executor.Result{Success: false, Output: "Permission denied"}, nil).Times(1)

	var phases []string
	orch := &Orchestrator{Exec: exec, Hooks: Hooks{OnEvent: func(e Event) { phases = append(phases, e.Phase) }}}

	require.NoError(t, orch.Export(context.Background(), "/tmp/Brewfile"))
	assert.Equal(t, []string{PhaseExporting, PhaseDone}, phases)

	err := orch.Export(context.Background(), "/readonly/Brewfile")
	assert.ErrorIs(t, err, errors.ErrOperationFailed)
	assert.Contains(t, err.Error(), "Permission denied")
	assert.Equal(t, PhaseFailed, phases[len(phases)-1])
}

func TestImportBundle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := ocmocks.NewMockExecutor(ctrl)
	exec.EXPECT().Execute(gomock.Any(), executor.OpBundleImport, "/tmp/Brewfile").
		Return(executor.Result{Success: true}, nil).Times(1)

	require.NoError(t, (&Orchestrator{Exec: exec}).ImportBundle(context.Background(), "/tmp/Brewfile"))
}

func TestParseBrewfile(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "casks only", in: "cask \"firefox\"\ncask 'slack'\n", want: []string{"firefox", "slack"}},
		{name: "comments and other entries", in: "# casks\nbrew \"wget\"\n  cask \"zoom\"  # video\nmas \"Xcode\", id: 497799835\n", want: []string{"zoom"}},
		{name: "duplicates keep first", in: "cask \"a\"\ncask \"b\"\ncask \"a\"\n", want: []string{"a", "b"}},
		{name: "options", in: "cask \"font-fira-code\", args: { appdir: \"~/Apps\" }\n", want: []string{"font-fira-code"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBrewfile(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
