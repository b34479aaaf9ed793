package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// CmdResult holds the outcome of a finished process.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunOpts holds optional parameters for command execution.
type RunOpts struct {
	// Dir is the working directory of the process.
	Dir string
	// Path replaces PATH for both executable lookup and the child environment.
	Path string
}

// CommandRunner runs external commands.
// A process that exits non-zero yields a CmdResult with ExitCode set and a nil error;
// errors are reserved for failures to start or wait (missing binary, canceled ctx).
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error)
}

// ErrNotFound is returned when the executable cannot be located in RunOpts.Path.
var ErrNotFound = errors.New("executable file not found in search path")

// RealRunner is the os/exec implementation of CommandRunner.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes the command and captures stdout and stderr.
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	binary := name

	if opts.Path != "" {
		resolved, err := LookPathIn(name, opts.Path)
		if err != nil {
			return CmdResult{}, err
		}

		binary = resolved
	}

	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = opts.Dir

	if opts.Path != "" {
		cmd.Env = append(cmd.Environ(), "PATH="+opts.Path)
	}

	err := cmd.Run()

	result := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		return result, fmt.Errorf("run %s: %w", name, err)
	}

	return result, nil
}

// LookPathIn searches the directories of searchPath for an executable named name.
// Names containing a path separator are checked as given.
func LookPathIn(name, searchPath string) (string, error) {
	if filepath.Base(name) != name {
		if isExecutable(name) {
			return name, nil
		}

		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}

		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return info.Mode().Perm()&0o111 != 0
}
