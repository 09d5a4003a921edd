package filter

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/catalog"
	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/model"
)

const resultVar = "__keep"

// Script is a compiled Tengo boolean expression evaluated once per cask.
// The expression sees these variables:
//
//	token, name, desc, version, homepage  string
//	names                                 array of strings
//	pkg_installer, auto_updates           bool
//	disabled, deprecated, has_caveat      bool
//
// and the "text" stdlib module as text, e.g.
//
//	!deprecated && text.contains(text.to_lower(desc), "browser")
type Script struct {
	expr     string
	compiled *tengo.Compiled
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Script, error) {
	src := fmt.Sprintf("text := import(\"text\")\n%s := (%s)\n", resultVar, expr)
	s := tengo.NewScript([]byte(src))
	s.SetImports(stdlib.GetModuleMap("text"))

	for name, zero := range scriptVars(&model.Cask{}) {
		if err := s.Add(name, zero); err != nil {
			return nil, fmt.Errorf("failed to add %s to script: %w", name, err)
		}
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidFilterQuery, err)
	}
	return &Script{expr: expr, compiled: compiled}, nil
}

// String returns the source expression.
func (s *Script) String() string { return s.expr }

// Match evaluates the expression for c. The result is Tengo truthiness.
func (s *Script) Match(ctx context.Context, c *model.Cask) (bool, error) {
	run := s.compiled.Clone()
	for name, v := range scriptVars(c) {
		if err := run.Set(name, v); err != nil {
			return false, fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	if err := run.RunContext(ctx); err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrInvalidFilterQuery, err)
	}
	return run.Get(resultVar).Bool(), nil
}

// Predicate keeps the casks the expression accepts. A cask whose evaluation
// fails is dropped.
func (s *Script) Predicate(ctx context.Context) catalog.Predicate {
	return Keep(func(c *model.Cask) bool {
		ok, err := s.Match(ctx, c)
		if err != nil {
			logger.Debug("Filter expression failed", logger.Fields{"token": c.Token, "error": err.Error()})
			return false
		}
		return ok
	})
}

func scriptVars(c *model.Cask) map[string]interface{} {
	names := make([]interface{}, 0, len(c.Names))
	for _, n := range c.Names {
		names = append(names, n)
	}
	return map[string]interface{}{
		"token":         c.Token,
		"name":          c.DisplayName(),
		"names":         names,
		"desc":          c.Description,
		"version":       c.Version,
		"homepage":      c.Homepage,
		"pkg_installer": c.PkgInstaller,
		"auto_updates":  c.AutoUpdates,
		"disabled":      c.IsDisabled(),
		"deprecated":    c.IsDeprecated(),
		"has_caveat":    c.HasCaveat(),
	}
}
