// Package executor runs package-manager operations for casks. The package
// manager is opaque: an operation either succeeds or fails, and its text
// output is passed back to the caller.
package executor

import (
	"bufio"
	"bytes"
	"context"
	goerrors "errors"
	"os"
	"os/exec"
	"strings"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/errors"
)

// Operation is a package-manager action.
type Operation string

const (
	OpInstall      Operation = "install"
	OpUpgrade      Operation = "upgrade"
	OpUninstall    Operation = "uninstall"
	OpBundleExport Operation = "bundle-export"
	OpBundleImport Operation = "bundle-import"
	OpList         Operation = "list"
)

// Result is what the package manager reported. Success is false when the
// command exited non-zero.
type Result struct {
	Success bool
	Output  string
}

// Executor runs one operation against one target: a cask token, or a file
// path for the bundle operations. Implementations must be safe to call
// concurrently for distinct targets.
type Executor interface {
	Execute(ctx context.Context, op Operation, target string) (Result, error)
}

// Runner starts a process and returns its combined output. The error is an
// *exec.ExitError when the process ran but failed.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec in the caller's environment.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	return cmd.CombinedOutput()
}

// DefaultBrewPath is used when no brew binary is configured.
const DefaultBrewPath = "brew"

// BrewExecutor drives Homebrew.
type BrewExecutor struct {
	Path string
	Run  Runner
}

// NewBrewExecutor returns an executor for the brew binary at path.
func NewBrewExecutor(path string) *BrewExecutor {
	if path == "" {
		path = DefaultBrewPath
	}
	return &BrewExecutor{Path: path, Run: ExecRunner}
}

// Args returns the brew arguments for op on target.
func Args(op Operation, target string) ([]string, error) {
	switch op {
	case OpInstall:
		return []string{"install", "--cask", target}, nil
	case OpUpgrade:
		return []string{"upgrade", "--cask", target}, nil
	case OpUninstall:
		return []string{"uninstall", "--cask", target}, nil
	case OpBundleExport:
		return []string{"bundle", "dump", "--cask", "--force", "--file=" + target}, nil
	case OpBundleImport:
		return []string{"bundle", "install", "--file=" + target}, nil
	case OpList:
		return []string{"list", "--cask", "--versions"}, nil
	default:
		return nil, errors.Wrapf(errors.ErrUnknownOperation, "%q", op)
	}
}

// Execute implements Executor. A command that ran and failed is reported as
// an unsuccessful Result; only a command that could not be started is an error.
func (b *BrewExecutor) Execute(ctx context.Context, op Operation, target string) (Result, error) {
	if b == nil || b.Run == nil {
		return Result{}, errors.ErrExecutorNotConfigured
	}
	args, err := Args(op, target)
	if err != nil {
		return Result{}, err
	}

	logger.Debug("Running package manager", logger.Fields{"op": string(op), "target": target})
	out, err := b.Run(ctx, b.Path, args...)
	res := Result{Success: err == nil, Output: strings.TrimSpace(string(out))}
	if err != nil {
		var exitErr *exec.ExitError
		if goerrors.As(err, &exitErr) {
			return res, nil
		}
		return res, errors.Wrapf(err, "failed to run %s %s", b.Path, op)
	}
	return res, nil
}

// Installed lists installed casks with their installed version.
func (b *BrewExecutor) Installed(ctx context.Context) (map[string]string, error) {
	res, err := b.Execute(ctx, OpList, "")
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.ErrOperationFailedWithOutput(string(OpList), "casks", res.Output)
	}
	return ParseInstalled(res.Output), nil
}

// ParseInstalled reads `brew list --cask --versions` output. When several
// versions are listed the last one wins.
func ParseInstalled(out string) map[string]string {
	installed := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewBufferString(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		version := ""
		if len(fields) > 1 {
			version = fields[len(fields)-1]
		}
		installed[fields[0]] = version
	}
	return installed
}
