//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, tempDir, catalogURL, brewPath, cadence string) string {
	t.Helper()
	return testutil.WriteConfig(t, tempDir, map[string]string{
		"cache_dir":      filepath.Join(tempDir, "cache"),
		"catalog_url":    catalogURL,
		"brew_path":      brewPath,
		"update_cadence": cadence,
		"http_timeout":   "5s",
		"log_level":      "error",
	})
}

func TestSearch_JSONOutputFlag(t *testing.T) {
	tempDir := t.TempDir()
	srv := testutil.NewCatalogServer(t, testutil.CatalogDoc)
	brew := testutil.NewFakeBrew(t, nil)
	cfgPath := writeConfig(t, tempDir, srv.URL, brew.Path, "weekly")

	out, err := execute(t, "--config", cfgPath, "-o", "json", "search", "chrome")
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "google-chrome", rows[0]["token"])

	// The flag override is not persisted by a later config set.
	_, err = execute(t, "--config", cfgPath, "-o", "json", "config", "set", "search_limit", "3")
	require.NoError(t, err)
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "search_limit: 3")
	assert.Contains(t, string(data), "output_format: text")
}

func TestSearch_FallsBackToStaleSnapshotWhenOffline(t *testing.T) {
	tempDir := t.TempDir()
	srv := testutil.NewCatalogServer(t, testutil.CatalogDoc)
	brew := testutil.NewFakeBrew(t, nil)
	cfgPath := writeConfig(t, tempDir, srv.URL, brew.Path, "every-launch")

	_, err := execute(t, "--config", cfgPath, "refresh")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits())

	srv.Close()

	out, err := execute(t, "--config", cfgPath, "search", "slack")
	require.NoError(t, err)
	assert.Contains(t, out, "slack")
}

func TestSearch_NoCatalogAvailable(t *testing.T) {
	tempDir := t.TempDir()
	srv := testutil.NewCatalogServer(t, testutil.CatalogDoc)
	brew := testutil.NewFakeBrew(t, nil)
	cfgPath := writeConfig(t, tempDir, srv.URL, brew.Path, "weekly")
	srv.Close()

	_, err := execute(t, "--config", cfgPath, "search", "slack")
	assert.ErrorIs(t, err, errors.ErrNoCatalog)
}

func TestInstallUpdateUninstall_EndToEnd(t *testing.T) {
	tempDir := t.TempDir()
	srv := testutil.NewCatalogServer(t, testutil.CatalogDoc)
	brew := testutil.NewFakeBrew(t, map[string]string{"firefox": "130.0"}, "zoom")
	cfgPath := writeConfig(t, tempDir, srv.URL, brew.Path, "weekly")

	out, err := execute(t, "--config", cfgPath, "install", "--concurrency", "2", "slack", "zoom", "firefox")
	assert.ErrorIs(t, err, errors.ErrOperationFailed)
	assert.Contains(t, out, "✓ slack")
	assert.Contains(t, out, "✗ zoom")
	assert.Contains(t, out, "firefox: nothing to do")

	out, err = execute(t, "--config", cfgPath, "update", "firefox")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ firefox")

	_, err = execute(t, "--config", cfgPath, "uninstall", "firefox")
	require.NoError(t, err)

	calls := brew.Calls(t)
	assert.Contains(t, calls, "install --cask slack")
	assert.Contains(t, calls, "install --cask zoom")
	assert.Contains(t, calls, "upgrade --cask firefox")
	assert.Contains(t, calls, "uninstall --cask firefox")
	assert.Equal(t, 1, srv.Hits())
}

func TestUpdate_AllUpToDate(t *testing.T) {
	tempDir := t.TempDir()
	srv := testutil.NewCatalogServer(t, testutil.CatalogDoc)
	brew := testutil.NewFakeBrew(t, map[string]string{"slack": "4.40.133", "zoom": "6.2.5.43451"})
	cfgPath := writeConfig(t, tempDir, srv.URL, brew.Path, "weekly")

	out, err := execute(t, "--config", cfgPath, "update", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "All casks are up to date")
	for _, call := range brew.Calls(t) {
		assert.False(t, strings.HasPrefix(call, "upgrade"), "unexpected call %q", call)
	}
}

func TestExportThenImport_RoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	srv := testutil.NewCatalogServer(t, testutil.CatalogDoc)
	source := testutil.NewFakeBrew(t, map[string]string{"firefox": "131.0.3", "slack": "4.40.133"})
	brewfile := filepath.Join(tempDir, "Brewfile")

	_, err := execute(t, "--config", writeConfig(t, tempDir, srv.URL, source.Path, "weekly"), "export", brewfile)
	require.NoError(t, err)

	target := testutil.NewFakeBrew(t, nil)
	out, err := execute(t, "--config", writeConfig(t, tempDir, srv.URL, target.Path, "weekly"), "import", brewfile)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ firefox")
	assert.Contains(t, out, "✓ slack")

	calls := target.Calls(t)
	assert.Contains(t, calls, "install --cask firefox")
	assert.Contains(t, calls, "install --cask slack")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "caskcat version "))
}
