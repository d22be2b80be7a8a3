package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/bitrise/configs"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-runner-smoke-test/output/mocks"
	"github.com/bitrise-steplib/steps-runner-smoke-test/report"
	"github.com/bitrise-steplib/steps-runner-smoke-test/testaddon"
	"github.com/bitrise-steplib/steps-runner-smoke-test/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type testingMocks struct {
	envRepository     *mocks.Repository
	outputExporter    *mocks.OutputExporter
	testAddonExporter *mocks.Exporter
}

func Test_GivenSuccessfulTest_WhenExportingTestRunResults_ThenSetsEnvVariableToSuccess(t *testing.T) {
	// Given
	exporter, mocks := createSutAndMocks(t)
	mocks.envRepository.On("Set", TestResultEnvKey, "succeeded").Return(nil).Once()

	// When
	exporter.ExportTestRunResult(false)
}

func Test_GivenFailedTest_WhenExportingTestRunResults_ThenSetsEnvVariableToFailure(t *testing.T) {
	// Given
	exporter, mocks := createSutAndMocks(t)
	mocks.envRepository.On("Set", TestResultEnvKey, "failed").Return(errors.New("envman failed")).Once()

	// When
	exporter.ExportTestRunResult(true)
}

func Test_GivenRunnerLog_WhenExporting_ThenCopiesItToDeployDir(t *testing.T) {
	// Given
	exporter, mocks := createSutAndMocks(t)
	mocks.outputExporter.On("ExportOutputFile", LogPathEnvKey, "/tmp/run/test_results/runner.log", "/deploy/runner.log").Return(nil).Once()

	// When
	err := exporter.ExportRunnerLog("/deploy", "/tmp/run/test_results/runner.log")

	// Then
	assert.NoError(t, err)
}

func Test_GivenTestResultsDir_WhenExporting_ThenZipsIt(t *testing.T) {
	// Given
	exporter, mocks := createSutAndMocks(t)
	mocks.outputExporter.On("ExportOutputFilesZip", ResultsZipPathEnvKey, []string{"/tmp/run/test_results"}, "/deploy/test_results.zip").
		Return(errors.New("zip failed")).Once()

	// When
	err := exporter.ExportTestResults("/deploy", "/tmp/run/test_results")

	// Then
	assert.EqualError(t, err, "failed to compress test results: zip failed")
}

func Test_GivenVerificationReport_WhenExporting_ThenWritesJSONAndSetsEnvVariable(t *testing.T) {
	// Given
	deployDir := t.TempDir()
	reportPath := filepath.Join(deployDir, "verification_report.json")
	exporter, mocks := createSutAndMocks(t)
	mocks.envRepository.On("Set", VerificationReportEnvKey, reportPath).Return(nil).Once()

	verification := verifier.Report{Results: []verifier.CheckResult{
		{Invariant: verifier.Coverage},
		{Invariant: verifier.LifecycleClosure, Failures: []*verifier.VerificationFailure{{
			Invariant: verifier.LifecycleClosure,
			Expected:  "1 tearDown event",
			Actual:    "0 tearDown events",
		}}},
	}}

	// When
	err := exporter.ExportVerificationReport(deployDir, verification)

	// Then
	require.NoError(t, err)
	content, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, "coverage", gjson.GetBytes(content, "results.0.invariant").String())
	assert.False(t, gjson.GetBytes(content, "results.0.failures").Exists())
	assert.Equal(t, "0 tearDown events", gjson.GetBytes(content, "results.1.failures.0.actual").String())
}

func Test_GivenTestAddonEnabled_WhenExportingTestReports_ThenCopiesThem(t *testing.T) {
	// Given
	exporter, mocks := createSutAndMocks(t)
	mocks.envRepository.On("Get", configs.BitrisePerStepTestResultDirEnvKey).Return("/addon").Once()
	mocks.testAddonExporter.On("CopyAndSaveMetadata", testaddon.AddonCopy{
		SourceReportPaths:     []string{"/tmp/iphone_se_ios_103.xml"},
		TargetAddonPath:       "/addon",
		TargetAddonBundleName: "TestApp",
	}).Return(nil).Once()

	// When
	exporter.ExportTestReports("TestApp", []string{"/tmp/iphone_se_ios_103.xml"})
}

func Test_GivenTestAddonDisabled_WhenExportingTestReports_ThenSkips(t *testing.T) {
	// Given
	exporter, mocks := createSutAndMocks(t)
	mocks.envRepository.On("Get", configs.BitrisePerStepTestResultDirEnvKey).Return("").Once()

	// When
	exporter.ExportTestReports("TestApp", []string{"/tmp/iphone_se_ios_103.xml"})

	// Then
	mocks.testAddonExporter.AssertNotCalled(t, "CopyAndSaveMetadata", mock.Anything)
}

func Test_GivenRetriedTest_WhenExportingFlakyTestCases_ThenOnlyRecoveredTestsAreListed(t *testing.T) {
	// Given
	detail := "failed"
	records := []report.TestCaseRecord{
		{Name: "testAlwaysSuccess", ClassName: "TestAppUITests", Succeeded: true},
		{Name: "testAlwaysFails", ClassName: "TestAppUITests", FailureDetail: &detail},
		{Name: "testAlwaysFails", ClassName: "TestAppUITests", FailureDetail: &detail},
		{Name: "testFlaky", ClassName: "TestAppUITests", FailureDetail: &detail},
		{Name: "testFlaky", ClassName: "TestAppUITests", Succeeded: true},
	}
	exporter, mocks := createSutAndMocks(t)
	mocks.envRepository.On("Set", "BITRISE_FLAKY_TEST_CASES", "- TestAppUITests.testFlaky\n").Return(nil).Once()

	// When
	err := exporter.ExportFlakyTestCases(records)

	// Then
	assert.NoError(t, err)
}

func Test_GivenNoFlakyTests_WhenExportingFlakyTestCases_ThenNothingIsExported(t *testing.T) {
	// Given
	exporter, mocks := createSutAndMocks(t)

	// When
	err := exporter.ExportFlakyTestCases([]report.TestCaseRecord{{Name: "testQuickTest", Succeeded: true}})

	// Then
	assert.NoError(t, err)
	mocks.envRepository.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

// Helpers

func createSutAndMocks(t *testing.T) (Exporter, testingMocks) {
	envRepository := mocks.NewRepository(t)
	outputExporter := mocks.NewOutputExporter(t)
	testAddonExporter := mocks.NewExporter(t)

	exporter := NewExporter(envRepository, log.NewLogger(), fileutil.NewFileManager(), outputExporter, testAddonExporter)

	return exporter, testingMocks{
		envRepository:     envRepository,
		outputExporter:    outputExporter,
		testAddonExporter: testAddonExporter,
	}
}
