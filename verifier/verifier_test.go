package verifier

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-runner-smoke-test/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const className = "TestAppUITests"

func entry(method string) report.TestEntry {
	return report.TestEntry{ClassName: className, MethodName: method}
}

func result(method string, outcomes ...bool) report.TestEntryResult {
	var runs []report.TestRunResult
	for _, succeeded := range outcomes {
		runs = append(runs, report.TestRunResult{Succeeded: succeeded})
	}
	return report.TestEntryResult{TestEntry: entry(method), TestRunResults: runs}
}

func env(workingDir string) report.TestContext {
	return report.TestContext{Environment: map[string]string{DefaultWorkingDirectoryEnvKey: workingDir}}
}

func willRun(workingDir string, methods ...string) *report.RunnerEventEnvelope {
	var entries []report.TestEntry
	for _, method := range methods {
		entries = append(entries, entry(method))
	}
	return &report.RunnerEventEnvelope{RunnerEvent: report.RunnerEvent{
		Type:        report.WillRun,
		TestEntries: entries,
		TestContext: env(workingDir),
	}}
}

func didRun(workingDir string, results ...report.TestEntryResult) *report.RunnerEventEnvelope {
	return &report.RunnerEventEnvelope{RunnerEvent: report.RunnerEvent{
		Type:        report.DidRun,
		Results:     results,
		TestContext: env(workingDir),
	}}
}

func testingResult(results ...report.TestEntryResult) *report.TestingResultEvent {
	return &report.TestingResultEvent{TestingResult: report.TestingResult{UnfilteredResults: results}}
}

// smokeRun returns the events of a correct run of the TestApp, the designated test writes into workingDir.
func smokeRun(workingDir string) []report.Event {
	otherDir := "/tmp/emcee/other"
	return []report.Event{
		willRun(otherDir, "fakeTest"),
		didRun(otherDir, result("fakeTest", true)),
		willRun(otherDir, "testAlwaysSuccess"),
		didRun(otherDir, result("testAlwaysSuccess", true)),
		willRun(workingDir, "testWritingToTestWorkingDir"),
		didRun(workingDir, result("testWritingToTestWorkingDir", true)),
		willRun(otherDir, "testSlowTest"),
		didRun(otherDir, result("testSlowTest", true)),
		willRun(otherDir, "testQuickTest"),
		didRun(otherDir, result("testQuickTest", true)),
		willRun(otherDir, "testAlwaysFails"),
		didRun(otherDir, result("testAlwaysFails", false)),
		willRun(otherDir, "testAlwaysFails"),
		didRun(otherDir, result("testAlwaysFails", false)),
		willRun(otherDir, "testMethodThatThrowsSwiftError"),
		didRun(otherDir, result("testMethodThatThrowsSwiftError", false)),
		willRun(otherDir, "testMethodThatThrowsSwiftError"),
		didRun(otherDir, result("testMethodThatThrowsSwiftError", false)),
		testingResult(
			result("testAlwaysSuccess", true),
			result("testWritingToTestWorkingDir", true),
			result("testSlowTest", true),
			result("testQuickTest", true),
		),
		testingResult(
			result("testAlwaysFails", false, false),
			result("testMethodThatThrowsSwiftError", false, false),
		),
		&report.TearDownEvent{},
	}
}

func smokeRecords() []report.TestCaseRecord {
	detail := "TestAppUITests.swift:12"
	var records []report.TestCaseRecord
	for _, name := range []string{"testAlwaysSuccess", "testWritingToTestWorkingDir", "testSlowTest", "testQuickTest"} {
		records = append(records, report.TestCaseRecord{Name: name, ClassName: className, Succeeded: true})
	}
	for _, name := range []string{"testAlwaysFails", "testMethodThatThrowsSwiftError"} {
		records = append(records, report.TestCaseRecord{Name: name, ClassName: className, FailureDetail: &detail})
	}
	return records
}

func workingDirWithArtifact(t *testing.T, contents string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_artifact.txt"), []byte(contents), 0644))
	return dir
}

func createVerifier() Verifier {
	return NewVerifier(log.NewLogger(), "")
}

func Test_GivenCorrectRun_WhenVerified_ThenEveryCheckPasses(t *testing.T) {
	// Given
	workingDir := workingDirWithArtifact(t, "contents")
	input := Input{
		Buckets:     Classify(smokeRun(workingDir)),
		Records:     smokeRecords(),
		Expectation: DefaultExpectation(),
	}

	// When
	r := createVerifier().Verify(input)

	// Then
	require.NoError(t, r.Err())
	assert.True(t, r.Passed())
	assert.Len(t, r.Results, 8)
	assert.Contains(t, r.Summary(), "- junit-outcomes: passed")
}

func Test_GivenEvents_WhenClassified_ThenBucketsKeepOrder(t *testing.T) {
	// Given
	unknown := &report.UnknownEvent{Type: "somethingNew"}
	first := willRun("/wd", "testA")
	second := didRun("/wd", result("testA", true))
	events := []report.Event{first, &report.TearDownEvent{}, unknown, second, testingResult()}

	// When
	buckets := Classify(events)

	// Then
	assert.Equal(t, []*report.RunnerEventEnvelope{first, second}, buckets.RunnerEvents)
	assert.Len(t, buckets.TearDowns, 1)
	assert.Equal(t, []*report.UnknownEvent{unknown}, buckets.Unknown)
	assert.Len(t, buckets.TestingResults, 1)
}

func Test_GivenRetriedThenRecoveredTest_WhenOutcomePartitionChecked_ThenPasses(t *testing.T) {
	// Given
	buckets := Classify([]report.Event{
		testingResult(result("testA", true), result("testB", false, true)),
	})
	expectation := Expectation{
		ShouldRun:     []string{"testA", "testB"},
		ShouldSucceed: []string{"testA", "testB"},
		ShouldFail:    []string{"testB"},
	}

	// When
	err := createVerifier().CheckOutcomePartition(buckets, expectation)

	// Then
	assert.NoError(t, err)
}

func Test_GivenRetriedThenRecoveredRun_WhenVerified_ThenEveryCheckPasses(t *testing.T) {
	// Given
	buckets := Classify([]report.Event{
		willRun("/wd", "fakeTest"), didRun("/wd", result("fakeTest", true)),
		willRun("/wd", "testA"), didRun("/wd", result("testA", true)),
		willRun("/wd", "testB"), didRun("/wd", result("testB", false)),
		willRun("/wd", "testB"), didRun("/wd", result("testB", true)),
		testingResult(result("testA", true), result("testB", false, true)),
		&report.TearDownEvent{},
	})
	expectation := Expectation{
		ShouldRun:     []string{"testA", "testB"},
		ShouldSucceed: []string{"testA", "testB"},
		ShouldFail:    []string{"testB"},
		Dispatched:    []string{"fakeTest", "testA", "testB"},
	}
	records := []report.TestCaseRecord{
		{Name: "testA", ClassName: className, Succeeded: true},
		{Name: "testB", ClassName: className, Succeeded: true},
	}

	// When
	r := createVerifier().Verify(Input{Buckets: buckets, Records: records, Expectation: expectation})

	// Then
	assert.True(t, r.Passed(), r.Summary())
	assert.Len(t, r.Results, 8)
	for _, checkResult := range r.Results {
		assert.Empty(t, checkResult.Failures, checkResult.Invariant)
	}
}

func Test_GivenRunnerEventWithUnrecognizedType_WhenVerified_ThenLifecycleClosureFails(t *testing.T) {
	// Given
	workingDir := workingDirWithArtifact(t, "contents")
	events := append(smokeRun(workingDir), &report.RunnerEventEnvelope{RunnerEvent: report.RunnerEvent{
		Type:        "somethingNew",
		TestContext: env(workingDir),
	}})

	// When
	r := createVerifier().Verify(Input{
		Buckets:     Classify(events),
		Records:     smokeRecords(),
		Expectation: DefaultExpectation(),
	})

	// Then
	require.False(t, r.Passed())
	var failed []Invariant
	for _, checkResult := range r.Results {
		if len(checkResult.Failures) > 0 {
			failed = append(failed, checkResult.Invariant)
		}
	}
	assert.Equal(t, []Invariant{LifecycleClosure}, failed)
	assert.Contains(t, r.Summary(), "runnerEvent/somethingNew")
}

func Test_GivenMissingFailedAttempt_WhenOutcomePartitionChecked_ThenFailsWithMultisetDifference(t *testing.T) {
	// Given
	buckets := Classify([]report.Event{
		testingResult(result("testAlwaysFails", false)),
	})
	expectation := Expectation{
		ShouldRun:  []string{"testAlwaysFails"},
		ShouldFail: []string{"testAlwaysFails", "testAlwaysFails"},
	}

	// When
	err := createVerifier().CheckOutcomePartition(buckets, expectation)

	// Then
	var verificationFailure *VerificationFailure
	require.True(t, errors.As(err, &verificationFailure))
	assert.Equal(t, OutcomePartition, verificationFailure.Invariant)
	assert.Contains(t, verificationFailure.Details, "missing: [testAlwaysFails]")
}

func Test_GivenFiveWillRunAndFourDidRun_WhenPairingChecked_ThenMissingTestIsNamed(t *testing.T) {
	// Given
	buckets := Classify([]report.Event{
		willRun("/wd", "testA"), didRun("/wd", result("testA", true)),
		willRun("/wd", "testB"), didRun("/wd", result("testB", true)),
		willRun("/wd", "testC"), didRun("/wd", result("testC", true)),
		willRun("/wd", "testD"), didRun("/wd", result("testD", true)),
		willRun("/wd", "testE"),
	})

	// When
	err := createVerifier().CheckWillRunDidRunPairing(buckets)

	// Then
	var verificationFailure *VerificationFailure
	require.True(t, errors.As(err, &verificationFailure))
	assert.Equal(t, WillRunDidRunPairing, verificationFailure.Invariant)
	assert.Equal(t, "5 didRun events (one per willRun)", verificationFailure.Expected)
	assert.Equal(t, "4 didRun events", verificationFailure.Actual)
	assert.Contains(t, verificationFailure.Details, "without didRun: [testE]")
}

func Test_GivenEqualCountsWithDifferentTests_WhenPairingChecked_ThenFails(t *testing.T) {
	// Given
	buckets := Classify([]report.Event{
		willRun("/wd", "testA"), didRun("/wd", result("testB", true)),
	})

	// When
	err := createVerifier().CheckWillRunDidRunPairing(buckets)

	// Then
	assert.Error(t, err)
}

func Test_GivenMissingFakeTest_WhenFullDispatchSetChecked_ThenFails(t *testing.T) {
	// Given
	events := smokeRun("/wd")[2:]

	// When
	err := createVerifier().CheckFullDispatchSet(Classify(events), DefaultExpectation())

	// Then
	var verificationFailure *VerificationFailure
	require.True(t, errors.As(err, &verificationFailure))
	assert.Contains(t, verificationFailure.Details, "not dispatched: [fakeTest]")
}

func Test_GivenRunnerEventWithoutWorkingDir_WhenEnvironmentChecked_ThenFails(t *testing.T) {
	// Given
	event := willRun("", "testA")
	buckets := Classify([]report.Event{willRun("/wd", "testA"), event})

	// When
	err := createVerifier().CheckEnvironmentPropagation(buckets)

	// Then
	var verificationFailure *VerificationFailure
	require.True(t, errors.As(err, &verificationFailure))
	assert.Equal(t, EnvironmentPropagation, verificationFailure.Invariant)
	assert.Contains(t, verificationFailure.Details, "#1 (willRun)")
}

func Test_GivenCustomWorkingDirEnvKey_WhenEnvironmentChecked_ThenUsesIt(t *testing.T) {
	// Given
	event := &report.RunnerEventEnvelope{RunnerEvent: report.RunnerEvent{
		Type:        report.TestStarted,
		TestEntry:   &report.TestEntry{MethodName: "testA"},
		TestContext: report.TestContext{Environment: map[string]string{"CUSTOM_WORKING_DIR": "/wd"}},
	}}

	// When
	err := NewVerifier(log.NewLogger(), "CUSTOM_WORKING_DIR").CheckEnvironmentPropagation(Classify([]report.Event{event}))

	// Then
	assert.NoError(t, err)
}

func TestCheckWorkingDirectorySideEffect(t *testing.T) {
	tests := []struct {
		name       string
		workingDir func(t *testing.T) string
		wantActual string
	}{
		{
			name:       "exact contents",
			workingDir: func(t *testing.T) string { return workingDirWithArtifact(t, "contents") },
		},
		{
			name:       "trailing newline is a mismatch",
			workingDir: func(t *testing.T) string { return workingDirWithArtifact(t, "contents\n") },
			wantActual: `"contents\n"`,
		},
		{
			name:       "missing file",
			workingDir: func(t *testing.T) string { return t.TempDir() },
			wantActual: "unreadable file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets := Classify(smokeRun(tt.workingDir(t)))

			err := createVerifier().CheckWorkingDirectorySideEffect(buckets, DefaultExpectation())

			if tt.wantActual == "" {
				assert.NoError(t, err)
				return
			}
			var verificationFailure *VerificationFailure
			require.True(t, errors.As(err, &verificationFailure))
			assert.Equal(t, WorkingDirectorySideEffect, verificationFailure.Invariant)
			assert.Equal(t, tt.wantActual, verificationFailure.Actual)
		})
	}
}

func Test_GivenSeveralDidRunsOfDesignatedTest_WhenSideEffectChecked_ThenFirstOneIsUsed(t *testing.T) {
	// Given
	first := workingDirWithArtifact(t, "contents")
	second := workingDirWithArtifact(t, "other")
	buckets := Classify([]report.Event{
		didRun(first, result("testWritingToTestWorkingDir", true)),
		didRun(second, result("testWritingToTestWorkingDir", true)),
	})

	// When
	err := createVerifier().CheckWorkingDirectorySideEffect(buckets, DefaultExpectation())

	// Then
	assert.NoError(t, err)
}

func Test_GivenUnknownEvent_WhenLifecycleChecked_ThenFails(t *testing.T) {
	// Given
	buckets := Classify([]report.Event{&report.TearDownEvent{}, &report.UnknownEvent{Type: "somethingNew"}})

	// When
	err := createVerifier().CheckLifecycleClosure(buckets)

	// Then
	var verificationFailure *VerificationFailure
	require.True(t, errors.As(err, &verificationFailure))
	assert.Contains(t, verificationFailure.Details, "somethingNew")
}

func Test_GivenTwoTearDowns_WhenLifecycleChecked_ThenFails(t *testing.T) {
	// Given
	buckets := Classify([]report.Event{&report.TearDownEvent{}, &report.TearDownEvent{}})

	// When
	err := createVerifier().CheckLifecycleClosure(buckets)

	// Then
	assert.EqualError(t, err, "lifecycle-closure: expected 1 tearDown event, got 2 tearDown events")
}

func Test_GivenSeveralBrokenInvariants_WhenVerified_ThenEveryFailureIsCollected(t *testing.T) {
	// Given
	workingDir := workingDirWithArtifact(t, "contents")
	events := append(smokeRun(workingDir), &report.UnknownEvent{Type: "somethingNew"})
	input := Input{
		Buckets:     Classify(events),
		Records:     smokeRecords()[1:],
		Expectation: DefaultExpectation(),
	}

	// When
	r := createVerifier().Verify(input)

	// Then
	require.False(t, r.Passed())
	var failed []Invariant
	for _, result := range r.Results {
		if len(result.Failures) > 0 {
			failed = append(failed, result.Invariant)
		}
	}
	assert.Equal(t, []Invariant{LifecycleClosure, JUnitOutcomes}, failed)
	assert.Contains(t, r.Summary(), "- coverage: passed")
	assert.Contains(t, r.Summary(), "- lifecycle-closure: FAILED")
}

func Test_GivenRecoveredTestInJUnit_WhenJUnitOutcomesChecked_ThenItCountsAsSucceeded(t *testing.T) {
	// Given
	records := []report.TestCaseRecord{
		{Name: "testA", Succeeded: true},
		{Name: "testB", Succeeded: true},
	}
	expectation := Expectation{
		ShouldRun:     []string{"testA", "testB"},
		ShouldSucceed: []string{"testA", "testB"},
		ShouldFail:    []string{"testB"},
	}

	// When
	err := createVerifier().CheckJUnitOutcomes(records, expectation)

	// Then
	assert.NoError(t, err)
}
