package process

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/stringutil"
)

const failureOutputLines = 20

// Failure is returned when an external command exits with a non-zero status.
type Failure struct {
	Command    string
	ExitCode   int
	Stdout     string
	Stderr     string
	ErrorLines []string
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("command failed with exit status %d (%s)", f.ExitCode, f.Command)
	if len(f.ErrorLines) > 0 {
		return msg + ":\n" + strings.Join(f.ErrorLines, "\n")
	}

	if tail := lastLines(f.Stderr, f.Stdout); tail != "" {
		return msg + ", last lines of the output:\n" + tail
	}

	return msg
}

// TimeoutError is returned when an external command did not finish within its timeout.
// The whole process group of the command is killed before it is returned.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Stdout  string
	Stderr  string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("command timed out after %s (%s)", e.Timeout, e.Command)
	if tail := lastLines(e.Stderr, e.Stdout); tail != "" {
		return msg + ", last lines of the output:\n" + tail
	}
	return msg
}

func lastLines(outputs ...string) string {
	for _, out := range outputs {
		if strings.TrimSpace(out) != "" {
			return stringutil.LastNLines(out, failureOutputLines)
		}
	}
	return ""
}
