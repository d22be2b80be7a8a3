package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/bitrise-io/go-utils/progress"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/kballard/go-shellquote"
)

const (
	shellPath = "/bin/bash"
	// How long Wait keeps waiting for the output pipes after the process group was killed.
	waitDelay = 10 * time.Second
)

// Command describes a single external process invocation.
// Exactly one of Args (executed directly) and Script (executed by a shell) should be set.
type Command struct {
	Args   []string
	Script string

	Dir string
	// Env is appended to the current process environment.
	Env []string
	// Timeout is a wall-clock ceiling for the whole invocation, 0 means no limit.
	Timeout time.Duration
	// ErrorFinder extracts the relevant error lines from the output of a failed command.
	ErrorFinder command.ErrorFinder
}

// ShellCommand returns a Command interpreted by the shell.
func ShellCommand(script string) Command {
	return Command{Script: script}
}

// ArgvCommand returns a Command executed without shell interpretation.
func ArgvCommand(name string, args ...string) Command {
	return Command{Args: append([]string{name}, args...)}
}

func (c Command) argv() []string {
	if c.Script != "" {
		return []string{shellPath, "-c", c.Script}
	}
	return c.Args
}

// PrintableCommandArgs ...
func (c Command) PrintableCommandArgs() string {
	if c.Script != "" {
		return c.Script
	}
	return shellquote.Join(c.Args...)
}

// CompletedProcess is the captured result of a finished process.
type CompletedProcess struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Invoker runs external commands.
type Invoker interface {
	Run(ctx context.Context, cmd Command) (CompletedProcess, error)
}

type invoker struct {
	logger log.Logger
}

// NewInvoker ...
func NewInvoker(logger log.Logger) Invoker {
	return &invoker{
		logger: logger,
	}
}

// Run executes cmd and waits for it to exit. A non-zero exit status is reported as a *Failure,
// hitting the timeout as a *TimeoutError; in both cases the captured output is returned too.
func (i invoker) Run(ctx context.Context, c Command) (CompletedProcess, error) {
	argv := c.argv()
	if len(argv) == 0 {
		return CompletedProcess{}, errors.New("no command specified")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = waitDelay
	killProcessGroupOnCancel(cmd)

	if c.Dir != "" {
		i.logger.TPrintf("$ cd %s && %s", shellquote.Join(c.Dir), c.PrintableCommandArgs())
	} else {
		i.logger.TPrintf("$ %s", c.PrintableCommandArgs())
	}

	var err error
	start := time.Now()
	progress.SimpleProgress(".", time.Minute, func() {
		err = cmd.Run()
	})

	result := CompletedProcess{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		i.logger.Warnf("Command (%s) exited successfully, but its child processes kept the output open for more than %s", c.PrintableCommandArgs(), waitDelay)
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, &TimeoutError{
				Command: c.PrintableCommandArgs(),
				Timeout: c.Timeout,
				Stdout:  result.Stdout,
				Stderr:  result.Stderr,
			}
		}
		return result, fmt.Errorf("command (%s) was cancelled: %w", c.PrintableCommandArgs(), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		var errorLines []string
		if c.ErrorFinder != nil {
			errorLines = c.ErrorFinder(result.Stdout + result.Stderr)
		}

		return result, &Failure{
			Command:    c.PrintableCommandArgs(),
			ExitCode:   result.ExitCode,
			Stdout:     result.Stdout,
			Stderr:     result.Stderr,
			ErrorLines: errorLines,
		}
	}

	return result, fmt.Errorf("executing command failed (%s): %w", c.PrintableCommandArgs(), err)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
