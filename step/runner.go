package step

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-runner-smoke-test/fixture"
	"github.com/bitrise-steplib/steps-runner-smoke-test/output"
	"github.com/bitrise-steplib/steps-runner-smoke-test/report"
	"github.com/bitrise-steplib/steps-runner-smoke-test/verifier"
)

// Result ...
type Result struct {
	RunResult *fixture.RunResult
	// RunnerLogPath is set whenever the runner was started, even if it failed.
	RunnerLogPath      string
	DestinationJUnit   string
	Records            []report.TestCaseRecord
	VerificationReport *verifier.Report
}

// SmokeTestRunner ...
type SmokeTestRunner struct {
	logger         log.Logger
	provider       fixture.Provider
	reader         report.Reader
	verifier       verifier.Verifier
	outputExporter output.Exporter
	utils          Utils
}

// NewSmokeTestRunner ...
func NewSmokeTestRunner(logger log.Logger, provider fixture.Provider, reader report.Reader, verifier verifier.Verifier, outputExporter output.Exporter, utils Utils) SmokeTestRunner {
	return SmokeTestRunner{
		logger:         logger,
		provider:       provider,
		reader:         reader,
		verifier:       verifier,
		outputExporter: outputExporter,
		utils:          utils,
	}
}

// Run builds the fixtures, runs the tests with the runner and verifies the reports it wrote.
func (s SmokeTestRunner) Run(ctx context.Context, cfg Config) (Result, error) {
	result := Result{}

	runParams := cfg.Run

	runner, err := s.provider.Runner(ctx, cfg.Runner)
	if err != nil {
		return result, fmt.Errorf("failed to build runner: %w", err)
	}
	runParams.Runner = runner

	app, err := s.provider.IosApp(ctx, cfg.App)
	if err != nil {
		return result, fmt.Errorf("failed to build test app: %w", err)
	}
	runParams.App = app

	plugin, err := s.provider.Plugin(ctx, cfg.Plugin)
	if err != nil {
		return result, fmt.Errorf("failed to build plugin: %w", err)
	}
	runParams.Plugins = []fixture.Plugin{plugin}

	runResult, err := s.provider.RunResult(ctx, runParams)
	if err != nil {
		var runnerErr *fixture.RunnerError
		if errors.As(err, &runnerErr) {
			result.RunnerLogPath = runnerErr.LogPath
			if content, readErr := os.ReadFile(runnerErr.LogPath); readErr == nil {
				s.utils.PrintLastLinesOfRunnerLog(string(content), false)
			}
		}
		return result, fmt.Errorf("failed to run tests: %w", err)
	}
	result.RunResult = &runResult
	result.RunnerLogPath = runResult.LogPath

	if err := s.verify(cfg, &result); err != nil {
		return result, err
	}

	return result, nil
}

func (s SmokeTestRunner) verify(cfg Config, result *Result) error {
	runResult := result.RunResult

	s.logger.Println()
	s.logger.Infof("Verifying test run")

	artifacts := []string{runResult.JUnitPath, runResult.TracePath, runResult.EventLogPath}
	for _, destinationReport := range runResult.DestinationReports {
		artifacts = append(artifacts, destinationReport.JUnitPath, destinationReport.TracePath)
	}
	if err := s.reader.RequireArtifacts(nonEmpty(artifacts)...); err != nil {
		return fmt.Errorf("missing test reports: %w", err)
	}

	result.DestinationJUnit = destinationJUnitPath(cfg, *runResult)
	records, err := s.reader.ParseJUnit(result.DestinationJUnit)
	if err != nil {
		return err
	}
	result.Records = records
	s.logger.Printf("%d test cases in %s", len(records), result.DestinationJUnit)

	events, err := s.reader.ParseEventLog(runResult.EventLogPath)
	if err != nil {
		return err
	}
	buckets := verifier.Classify(events)
	s.logger.Printf("%d events: %d testing results, %d runner events, %d tear downs, %d unknown",
		len(events), len(buckets.TestingResults), len(buckets.RunnerEvents), len(buckets.TearDowns), len(buckets.Unknown))

	verificationReport := s.verifier.Verify(verifier.Input{
		Buckets:     buckets,
		Records:     records,
		Expectation: cfg.Expectation,
	})
	result.VerificationReport = &verificationReport

	s.logger.Println()
	if verificationReport.Passed() {
		s.logger.Donef("Verification passed")
		s.logger.Printf("%s", verificationReport.Summary())
		return nil
	}

	s.logger.Errorf("Verification failed")
	s.logger.Printf("%s", verificationReport.Summary())
	return fmt.Errorf("verification failed: %w", verificationReport.Err())
}

// Export ...
func (s SmokeTestRunner) Export(cfg Config, result Result, failed bool) error {
	s.logger.Println()
	s.logger.Infof("Export outputs")

	s.outputExporter.ExportTestRunResult(failed)

	if cfg.DeployDir == "" {
		s.logger.Warnf("No deploy dir (BITRISE_DEPLOY_DIR) provided, skipping file exports")
		return nil
	}

	var errs []error
	if result.RunnerLogPath != "" {
		if err := s.outputExporter.ExportRunnerLog(cfg.DeployDir, result.RunnerLogPath); err != nil {
			errs = append(errs, err)
		}
	}

	if result.RunResult != nil {
		if err := s.outputExporter.ExportTestResults(cfg.DeployDir, result.RunResult.TestResultsDir); err != nil {
			errs = append(errs, err)
		}
	}

	if result.DestinationJUnit != "" {
		s.outputExporter.ExportTestReports(cfg.TestBundleName, []string{result.DestinationJUnit})
	}

	if len(result.Records) > 0 {
		if err := s.outputExporter.ExportFlakyTestCases(result.Records); err != nil {
			errs = append(errs, err)
		}
	}

	if result.VerificationReport != nil {
		if err := s.outputExporter.ExportVerificationReport(cfg.DeployDir, *result.VerificationReport); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func destinationJUnitPath(cfg Config, runResult fixture.RunResult) string {
	if cfg.DestinationJUnitPath != "" {
		if filepath.IsAbs(cfg.DestinationJUnitPath) {
			return cfg.DestinationJUnitPath
		}
		return filepath.Join(runResult.CurrentDirectory, cfg.DestinationJUnitPath)
	}
	for _, destinationReport := range runResult.DestinationReports {
		if destinationReport.JUnitPath != "" {
			return destinationReport.JUnitPath
		}
	}
	return runResult.JUnitPath
}

func nonEmpty(pths []string) []string {
	var filtered []string
	for _, pth := range pths {
		if pth != "" {
			filtered = append(filtered, pth)
		}
	}
	return filtered
}
