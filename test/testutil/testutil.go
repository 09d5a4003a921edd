// Package testutil provides fixtures for command-level tests: a catalog
// server, a stand-in brew executable and config files.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glorpus-work/caskcat/internal/logger"
)

// CatalogDoc is a small catalog document in the upstream format.
const CatalogDoc = `[
  {"token": "firefox", "name": ["Mozilla Firefox"], "desc": "Web browser", "homepage": "https://www.mozilla.org/firefox/", "version": "131.0.3", "auto_updates": true},
  {"token": "firefox@developer-edition", "name": ["Firefox Developer Edition"], "desc": "Web browser", "version": "132.0b9"},
  {"token": "google-chrome", "name": ["Google Chrome"], "desc": "Web browser", "version": "130.0.6723.70", "auto_updates": true},
  {"token": "old-tool", "name": ["Old Tool"], "desc": "Legacy helper", "version": "1.0", "disabled": true, "disable_date": "2024-01-15", "disable_reason": "discontinued"},
  {"token": "slack", "name": ["Slack"], "desc": "Team communication and collaboration software", "version": "4.40.133"},
  {"token": "zoom", "name": ["Zoom"], "desc": "Video communication and virtual meeting platform", "version": "6.2.5.43451", "caveats": "Requires a restart.", "artifacts": [{"pkg": ["zoomusInstallerFull.pkg"]}]}
]`

// CatalogServer serves a catalog document and counts requests.
type CatalogServer struct {
	*httptest.Server
	hits atomic.Int32
}

// NewCatalogServer starts a server answering every request with doc. It is
// closed when the test ends.
func NewCatalogServer(t *testing.T, doc string) *CatalogServer {
	t.Helper()
	cs := &CatalogServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cs.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(cs.Close)
	return cs
}

// Hits returns the number of requests served.
func (cs *CatalogServer) Hits() int { return int(cs.hits.Load()) }

// FakeBrew is a shell script standing in for brew. It records every call.
type FakeBrew struct {
	Path string
	log  string
}

// NewFakeBrew writes the script to a temp dir. `list` prints installed,
// `bundle dump` writes installed casks to the --file target, and any other
// call naming a token in failing exits 1.
func NewFakeBrew(t *testing.T, installed map[string]string, failing ...string) *FakeBrew {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	dir := t.TempDir()
	fb := &FakeBrew{Path: filepath.Join(dir, "brew"), log: filepath.Join(dir, "calls.log")}

	tokens := make([]string, 0, len(installed))
	for token := range installed {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	var list, bundle strings.Builder
	for _, token := range tokens {
		fmt.Fprintf(&list, "%s %s\n", token, installed[token])
		fmt.Fprintf(&bundle, "cask \"%s\"\n", token)
	}

	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >> '%s'
case "$1" in
list)
	cat <<'LIST'
%sLIST
	;;
bundle)
	if [ "$2" = "dump" ]; then
		for a in "$@"; do
			case "$a" in --file=*) out="${a#--file=}" ;; esac
		done
		cat > "$out" <<'BUNDLE'
%sBUNDLE
	fi
	;;
*)
	for a in "$@"; do
		case " %s " in *" $a "*) echo "Error: $a failed to $1" >&2; exit 1 ;; esac
	done
	;;
esac
`, fb.log, list.String(), bundle.String(), strings.Join(failing, " "))

	if err := os.WriteFile(fb.Path, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write fake brew: %v", err)
	}
	return fb
}

// Calls returns the argument lines brew was invoked with, in order.
func (fb *FakeBrew) Calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(fb.log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("Failed to read brew call log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// WriteConfig writes a config file under dir with the given settings and
// returns its path. Values are written verbatim, so quote YAML-special strings.
func WriteConfig(t *testing.T, dir string, settings map[string]string) string {
	t.Helper()

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("settings:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, settings[k])
	}

	path := filepath.Join(dir, "config.yaml")
	logger.Debugf("Writing test config to: %s", path)
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}
