package runnercommand

import (
	"strconv"

	"github.com/kballard/go-shellquote"
)

const runTestsSubcommand = "runTests"

// RunnerArgs is the configuration of a single runner invocation.
type RunnerArgs struct {
	RunnerPath         string
	FbsimctlURL        string
	FbxctestURL        string
	JUnitPath          string
	NumberOfSimulators int
	// SingleTestTimeout is passed to the runner in seconds.
	SingleTestTimeout int
	TempFolder        string
	TestArgFile       string
	TracePath         string
	Plugins           []string
	TestDestinations  []string
}

// Args returns the runner argv. Flag order is fixed and multi-valued flags are repeated in input order,
// so equal RunnerArgs always produce equal argv.
func (a RunnerArgs) Args() []string {
	args := []string{
		a.RunnerPath, runTestsSubcommand,
		"--fbsimctl", a.FbsimctlURL,
		"--fbxctest", a.FbxctestURL,
		"--junit", a.JUnitPath,
		"--number-of-simulators", strconv.Itoa(a.NumberOfSimulators),
		"--single-test-timeout", strconv.Itoa(a.SingleTestTimeout),
		"--temp-folder", a.TempFolder,
		"--test-arg-file", a.TestArgFile,
		"--trace", a.TracePath,
	}

	for _, plugin := range a.Plugins {
		args = append(args, "--plugin", plugin)
	}

	for _, destination := range a.TestDestinations {
		args = append(args, "--test-destinations", destination)
	}

	return args
}

// CommandLine returns Args as a single shell-quoted string.
func (a RunnerArgs) CommandLine() string {
	return shellquote.Join(a.Args()...)
}
