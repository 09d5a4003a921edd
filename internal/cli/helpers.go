package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/catalog"
	"github.com/glorpus-work/caskcat/pkg/config"
	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/executor"
	"github.com/glorpus-work/caskcat/pkg/model"
	"github.com/glorpus-work/caskcat/pkg/orchestrator"
	"github.com/glorpus-work/caskcat/pkg/session"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

// loadConfig reads the config file, applies the global flags on top and
// initializes logging from the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.OutputFormat))
	return cfg, nil
}

// loadSession builds a session from cfg and fills its catalog.
func loadSession(ctx context.Context, cfg *config.Config, force bool) (*session.Session, session.LoadResult, error) {
	sess, err := session.FromConfig(cfg, catalog.Hooks{
		OnChange: func(ch catalog.Change) {
			logger.Debug("Catalog changed", logger.Fields{"kind": string(ch.Kind), "catalog": ch.Catalog, "filtered": ch.Filtered})
		},
	})
	if err != nil {
		return nil, session.LoadResult{}, err
	}

	res, err := sess.LoadCatalog(ctx, force)
	if err != nil {
		return nil, res, fmt.Errorf("failed to load catalog: %w", err)
	}
	if res.Dropped > 0 {
		logger.Warn("Skipped malformed catalog entries", logger.Fields{"count": res.Dropped})
	}
	return sess, res, nil
}

func newBrewExecutor(cfg *config.Config) *executor.BrewExecutor {
	return executor.NewBrewExecutor(cfg.Settings.BrewPath)
}

func newOrchestrator(cfg *config.Config, out io.Writer) *orchestrator.Orchestrator {
	brew := newBrewExecutor(cfg)
	return orchestrator.New(brew, brew, progressHooks(out), cfg.Settings.MaxConcurrent)
}

// resolveCasks looks up every token. All unknown tokens are reported together.
func resolveCasks(sess *session.Session, tokens []string) ([]*model.Cask, error) {
	casks := make([]*model.Cask, 0, len(tokens))
	var missing []string
	for _, token := range tokens {
		c, err := sess.Lookup(token)
		if err != nil {
			missing = append(missing, token)
			continue
		}
		casks = append(casks, c)
	}
	if len(missing) > 0 {
		return nil, errors.ErrCaskNotFoundWithToken(strings.Join(missing, ", "))
	}
	return casks, nil
}

// reportError turns failed batch items into a single command error.
func reportError(verb string, rep orchestrator.Report) error {
	if rep.OK() {
		return nil
	}
	failed := make([]string, 0, len(rep.Failed))
	for _, f := range rep.Failed {
		failed = append(failed, f.Item.Token)
	}
	return errors.Wrapf(errors.ErrOperationFailed, "failed to %s %d of %d cask(s): %s",
		verb, len(rep.Failed), len(rep.Outcomes), strings.Join(failed, ", "))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
