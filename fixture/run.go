package fixture

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"time"

	"github.com/bitrise-steplib/steps-runner-smoke-test/process"
	"github.com/bitrise-steplib/steps-runner-smoke-test/runnercommand"
	"github.com/bitrise-steplib/steps-runner-smoke-test/testargfile"
)

const (
	junitFileName           = "junit.combined.xml"
	traceFileName           = "trace.combined.json"
	testArgFileName         = "test_arg_file.json"
	runnerLogFileName       = "runner.log"
	testResultsDirName      = "test_results"
	currentDirectoryDirName = "current_directory"
	tempFolderDirName       = "temp_folder"
	runDirectoryPrefix      = "smoke_tests_result"
	defaultScheduleName     = testargfile.ScheduleStrategyIndividual
)

// RunnerError is returned when the runner invocation fails, its output is kept at LogPath.
type RunnerError struct {
	LogPath string
	Err     error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("runner failed (log: %s): %s", e.LogPath, e.Err)
}

func (e *RunnerError) Unwrap() error {
	return e.Err
}

// RunParams configures a single runner invocation against the built fixtures.
type RunParams struct {
	Runner  Executable `json:"runner"`
	App     IosApp     `json:"app"`
	Plugins []Plugin   `json:"plugins"`

	FbsimctlURL string            `json:"fbsimctl_url"`
	FbxctestURL string            `json:"fbxctest_url"`
	Environment map[string]string `json:"environment"`
	// DestinationFiles are passed to the runner as --test-destinations, report paths in them are relative to the run directory.
	DestinationFiles   []string `json:"destination_files"`
	NumberOfSimulators int      `json:"number_of_simulators"`
	NumberOfRetries    int      `json:"number_of_retries"`
	ScheduleStrategy   string   `json:"schedule_strategy"`
	// SingleTestTimeout is in seconds.
	SingleTestTimeout int `json:"single_test_timeout"`
	// EventLogPath is where the event logging plugin writes, relative to the run directory.
	EventLogPath string `json:"event_log_path"`

	// Timeout is the wall-clock ceiling of the whole runner invocation, 0 means no limit.
	Timeout time.Duration `json:"timeout"`
}

// RunResult runs the runner once with the given fixtures and returns where its reports are.
func (p *provider) RunResult(ctx context.Context, params RunParams) (RunResult, error) {
	key, err := cacheKey(resultKey, params)
	if err != nil {
		return RunResult{}, err
	}

	return get(p, key, p.runResultProducer(ctx, params), func(result RunResult) []string {
		return []string{result.CurrentDirectory, result.JUnitPath, result.EventLogPath}
	})
}

func (p *provider) runResultProducer(ctx context.Context, params RunParams) iter.Seq2[RunResult, error] {
	return func(yield func(RunResult, error) bool) {
		p.logger.Println()
		p.logger.Infof("Running tests with %s", params.Runner.Path)

		result, err := p.run(ctx, params)
		yield(result, err)
	}
}

func (p *provider) run(ctx context.Context, params RunParams) (RunResult, error) {
	runDir, err := p.temporaryDirectory(runDirectoryPrefix)
	if err != nil {
		return RunResult{}, err
	}
	testResultsDir, err := runDir.SubDirectory(testResultsDirName)
	if err != nil {
		return RunResult{}, err
	}
	currentDir, err := runDir.SubDirectory(currentDirectoryDirName)
	if err != nil {
		return RunResult{}, err
	}
	tempFolder, err := runDir.SubDirectory(tempFolderDirName)
	if err != nil {
		return RunResult{}, err
	}

	var destinations []testargfile.DestinationConfiguration
	var destinationReports []DestinationReport
	for _, pth := range params.DestinationFiles {
		configurations, err := testargfile.ReadDestinationConfigurations(pth)
		if err != nil {
			return RunResult{}, err
		}
		destinations = append(destinations, configurations...)

		for _, configuration := range configurations {
			destinationReports = append(destinationReports, DestinationReport{
				JUnitPath: resolve(currentDir.Root(), configuration.ReportOutput.JUnit),
				TracePath: resolve(currentDir.Root(), configuration.ReportOutput.TracingReport),
			})
		}
	}
	if len(destinations) == 0 {
		return RunResult{}, fmt.Errorf("no test destinations provided")
	}

	scheduleStrategy := params.ScheduleStrategy
	if scheduleStrategy == "" {
		scheduleStrategy = defaultScheduleName
	}

	argFile := testargfile.New(testargfile.Params{
		AppBundle:        params.App.AppPath,
		UITestsRunner:    params.App.UITestsRunnerPath,
		XcTestBundle:     params.App.XcTestBundlePath,
		Environment:      params.Environment,
		NumberOfRetries:  params.NumberOfRetries,
		ScheduleStrategy: scheduleStrategy,
		Destinations:     destinations,
	})
	argFilePath := runDir.Path(testArgFileName)
	if err := p.argFileWriter.Write(argFilePath, argFile); err != nil {
		return RunResult{}, err
	}

	var plugins []string
	for _, plugin := range params.Plugins {
		plugins = append(plugins, plugin.Path)
	}

	runnerArgs := runnercommand.RunnerArgs{
		RunnerPath:         params.Runner.Path,
		FbsimctlURL:        params.FbsimctlURL,
		FbxctestURL:        params.FbxctestURL,
		JUnitPath:          testResultsDir.Path(junitFileName),
		NumberOfSimulators: params.NumberOfSimulators,
		SingleTestTimeout:  params.SingleTestTimeout,
		TempFolder:         tempFolder.Root(),
		TestArgFile:        argFilePath,
		TracePath:          testResultsDir.Path(traceFileName),
		Plugins:            plugins,
		TestDestinations:   params.DestinationFiles,
	}

	p.logger.Debugf("Runner command: %s", runnerArgs.CommandLine())

	cmd := process.Command{
		Args:    runnerArgs.Args(),
		Dir:     currentDir.Root(),
		Timeout: params.Timeout,
	}
	out, runErr := p.invoker.Run(ctx, cmd)

	logPath := testResultsDir.Path(runnerLogFileName)
	if err := p.fileManager.Write(logPath, out.Stdout+out.Stderr, 0644); err != nil {
		p.logger.Warnf("Failed to save runner log: %s", err)
	}

	if runErr != nil {
		return RunResult{}, &RunnerError{LogPath: logPath, Err: runErr}
	}

	p.logger.Donef("Runner finished in %s", out.Duration.Round(time.Second))

	return RunResult{
		CurrentDirectory:   currentDir.Root(),
		TempFolder:         tempFolder.Root(),
		TestResultsDir:     testResultsDir.Root(),
		JUnitPath:          runnerArgs.JUnitPath,
		TracePath:          runnerArgs.TracePath,
		TestArgFilePath:    argFilePath,
		EventLogPath:       resolve(currentDir.Root(), params.EventLogPath),
		DestinationReports: destinationReports,
		CommandLine:        runnerArgs.CommandLine(),
		LogPath:            logPath,
		Duration:           out.Duration,
	}, nil
}

func resolve(dir, pth string) string {
	if pth == "" || filepath.IsAbs(pth) {
		return pth
	}
	return filepath.Join(dir, pth)
}
