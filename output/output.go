package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bitrise-io/bitrise/configs"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-runner-smoke-test/report"
	"github.com/bitrise-steplib/steps-runner-smoke-test/testaddon"
	"github.com/bitrise-steplib/steps-runner-smoke-test/verifier"
)

const (
	TestResultEnvKey         = "RUNNER_SMOKE_TEST_RESULT"
	LogPathEnvKey            = "RUNNER_SMOKE_TEST_LOG_PATH"
	ResultsZipPathEnvKey     = "RUNNER_SMOKE_TEST_RESULTS_ZIP_PATH"
	VerificationReportEnvKey = "RUNNER_SMOKE_TEST_VERIFICATION_REPORT_PATH"

	flakyTestCasesEnvVarKey              = "BITRISE_FLAKY_TEST_CASES"
	flakyTestCasesEnvVarSizeLimitInBytes = 1024

	runnerLogFileName          = "runner.log"
	testResultsZipFileName     = "test_results.zip"
	verificationReportFileName = "verification_report.json"
)

// OutputExporter is implemented by *export.Exporter.
type OutputExporter interface {
	ExportOutputFile(key, sourcePath, destinationPath string) error
	ExportOutputFilesZip(key string, sourcePaths []string, zipPath string) error
}

// Exporter ...
type Exporter interface {
	ExportTestRunResult(failed bool)
	ExportRunnerLog(deployDir, logPath string) error
	ExportTestResults(deployDir, testResultsDir string) error
	ExportVerificationReport(deployDir string, verification verifier.Report) error
	ExportTestReports(bundleName string, reportPaths []string)
	ExportFlakyTestCases(records []report.TestCaseRecord) error
}

type exporter struct {
	envRepository     env.Repository
	logger            log.Logger
	fileManager       fileutil.FileManager
	outputExporter    OutputExporter
	testAddonExporter testaddon.Exporter
}

// NewExporter ...
func NewExporter(envRepository env.Repository, logger log.Logger, fileManager fileutil.FileManager, outputExporter OutputExporter, testAddonExporter testaddon.Exporter) Exporter {
	return &exporter{
		envRepository:     envRepository,
		logger:            logger,
		fileManager:       fileManager,
		outputExporter:    outputExporter,
		testAddonExporter: testAddonExporter,
	}
}

func (e exporter) ExportTestRunResult(failed bool) {
	status := "succeeded"
	if failed {
		status = "failed"
	}
	if err := e.envRepository.Set(TestResultEnvKey, status); err != nil {
		e.logger.Warnf("Failed to export: %s: %s", TestResultEnvKey, err)
	}
}

func (e exporter) ExportRunnerLog(deployDir, logPath string) error {
	deployPth := filepath.Join(deployDir, runnerLogFileName)
	if err := e.outputExporter.ExportOutputFile(LogPathEnvKey, logPath, deployPth); err != nil {
		return fmt.Errorf("failed to export runner log from (%s) to (%s): %w", logPath, deployPth, err)
	}

	return nil
}

func (e exporter) ExportTestResults(deployDir, testResultsDir string) error {
	zipPath := filepath.Join(deployDir, testResultsZipFileName)
	if err := e.outputExporter.ExportOutputFilesZip(ResultsZipPathEnvKey, []string{testResultsDir}, zipPath); err != nil {
		return fmt.Errorf("failed to compress test results: %w", err)
	}

	return nil
}

func (e exporter) ExportVerificationReport(deployDir string, verification verifier.Report) error {
	content, err := json.MarshalIndent(verification, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode verification report: %w", err)
	}

	pth := filepath.Join(deployDir, verificationReportFileName)
	if err := e.fileManager.Write(pth, string(content), 0644); err != nil {
		return fmt.Errorf("failed to write verification report: %w", err)
	}

	if err := e.envRepository.Set(VerificationReportEnvKey, pth); err != nil {
		e.logger.Warnf("Failed to export: %s: %s", VerificationReportEnvKey, err)
	}

	return nil
}

// ExportTestReports copies the reports to the test reports add-on, if it is enabled for the build.
func (e exporter) ExportTestReports(bundleName string, reportPaths []string) {
	addonResultPath := e.envRepository.Get(configs.BitrisePerStepTestResultDirEnvKey)
	if len(addonResultPath) == 0 {
		return
	}

	e.logger.Println()
	e.logger.Infof("Exporting test results")

	if err := e.testAddonExporter.CopyAndSaveMetadata(testaddon.AddonCopy{
		SourceReportPaths:     reportPaths,
		TargetAddonPath:       addonResultPath,
		TargetAddonBundleName: bundleName,
	}); err != nil {
		e.logger.Warnf("Failed to export test results: %s", err)
	}
}

// ExportFlakyTestCases exports the test cases which both failed and succeeded during the run.
func (e exporter) ExportFlakyTestCases(records []report.TestCaseRecord) error {
	flakyTestCases := collectFlakyTestCases(records)
	if len(flakyTestCases) == 0 {
		return nil
	}

	var flakyTestCasesMessage string
	for i, flakyTestCase := range flakyTestCases {
		flakyTestCasesMessageLine := fmt.Sprintf("- %s\n", flakyTestCase)

		if len(flakyTestCasesMessage)+len(flakyTestCasesMessageLine) > flakyTestCasesEnvVarSizeLimitInBytes {
			e.logger.Warnf("%s env var size limit (%d characters) exceeded. Skipping %d test cases.", flakyTestCasesEnvVarKey, flakyTestCasesEnvVarSizeLimitInBytes, len(flakyTestCases)-i)
			break
		}

		flakyTestCasesMessage += flakyTestCasesMessageLine
	}

	if err := e.envRepository.Set(flakyTestCasesEnvVarKey, flakyTestCasesMessage); err != nil {
		return fmt.Errorf("failed to export %s: %w", flakyTestCasesEnvVarKey, err)
	}

	return nil
}

func collectFlakyTestCases(records []report.TestCaseRecord) []string {
	succeeded := map[string]bool{}
	failed := map[string]bool{}
	var names []string

	for _, record := range records {
		name := record.Name
		if len(record.ClassName) > 0 {
			name = fmt.Sprintf("%s.%s", record.ClassName, record.Name)
		}

		if !succeeded[name] && !failed[name] {
			names = append(names, name)
		}
		if record.Succeeded {
			succeeded[name] = true
		} else {
			failed[name] = true
		}
	}

	return slices.DeleteFunc(names, func(name string) bool {
		return !(succeeded[name] && failed[name])
	})
}
