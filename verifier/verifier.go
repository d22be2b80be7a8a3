package verifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-runner-smoke-test/report"
)

// DefaultWorkingDirectoryEnvKey is the environment variable the runner sets to the working directory of a test.
const DefaultWorkingDirectoryEnvKey = "EMCEE_TESTS_WORKING_DIRECTORY"

// Invariant names a property of a correct run.
type Invariant string

const (
	Coverage                   Invariant = "coverage"
	OutcomePartition           Invariant = "outcome-partition"
	WillRunDidRunPairing       Invariant = "will-run-did-run-pairing"
	FullDispatchSet            Invariant = "full-dispatch-set"
	EnvironmentPropagation     Invariant = "environment-propagation"
	WorkingDirectorySideEffect Invariant = "working-directory-side-effect"
	LifecycleClosure           Invariant = "lifecycle-closure"
	JUnitOutcomes              Invariant = "junit-outcomes"
)

// VerificationFailure is returned by a check whose invariant does not hold.
type VerificationFailure struct {
	Invariant Invariant `json:"invariant"`
	Expected  string    `json:"expected"`
	Actual    string    `json:"actual"`
	Details   string    `json:"details,omitempty"`
}

func (f *VerificationFailure) Error() string {
	msg := fmt.Sprintf("%s: expected %s, got %s", f.Invariant, f.Expected, f.Actual)
	if f.Details != "" {
		msg += " (" + f.Details + ")"
	}
	return msg
}

func failure(invariant Invariant, expected, actual interface{}, details string) error {
	return &VerificationFailure{
		Invariant: invariant,
		Expected:  fmt.Sprintf("%v", expected),
		Actual:    fmt.Sprintf("%v", actual),
		Details:   details,
	}
}

// Input is everything a run is verified on.
type Input struct {
	Buckets     Buckets
	Records     []report.TestCaseRecord
	Expectation Expectation
}

// CheckResult ...
type CheckResult struct {
	Invariant Invariant              `json:"invariant"`
	Failures  []*VerificationFailure `json:"failures,omitempty"`
}

// Report collects the result of every check.
type Report struct {
	Results []CheckResult `json:"results"`
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	return r.Err() == nil
}

// Err joins the failures of the report, nil if every check passed.
func (r Report) Err() error {
	var errs []error
	for _, result := range r.Results {
		for _, f := range result.Failures {
			errs = append(errs, f)
		}
	}
	return errors.Join(errs...)
}

// Summary returns one line per check.
func (r Report) Summary() string {
	var lines []string
	for _, result := range r.Results {
		if len(result.Failures) == 0 {
			lines = append(lines, fmt.Sprintf("- %s: passed", result.Invariant))
			continue
		}
		for _, f := range result.Failures {
			lines = append(lines, fmt.Sprintf("- %s: FAILED, %s", result.Invariant, f.Error()))
		}
	}
	return strings.Join(lines, "\n")
}

// Verifier checks a classified event log and JUnit report against an Expectation.
type Verifier interface {
	Verify(input Input) Report

	CheckCoverage(buckets Buckets, expectation Expectation) error
	CheckOutcomePartition(buckets Buckets, expectation Expectation) error
	CheckWillRunDidRunPairing(buckets Buckets) error
	CheckFullDispatchSet(buckets Buckets, expectation Expectation) error
	CheckEnvironmentPropagation(buckets Buckets) error
	CheckWorkingDirectorySideEffect(buckets Buckets, expectation Expectation) error
	CheckLifecycleClosure(buckets Buckets) error
	CheckJUnitOutcomes(records []report.TestCaseRecord, expectation Expectation) error
}

type verifier struct {
	logger           log.Logger
	workingDirEnvKey string
}

// NewVerifier ...
func NewVerifier(logger log.Logger, workingDirEnvKey string) Verifier {
	if workingDirEnvKey == "" {
		workingDirEnvKey = DefaultWorkingDirectoryEnvKey
	}
	return &verifier{
		logger:           logger,
		workingDirEnvKey: workingDirEnvKey,
	}
}

// Verify runs every check, a failing check does not stop the others.
func (v verifier) Verify(input Input) Report {
	checks := []struct {
		invariant Invariant
		check     func() error
	}{
		{Coverage, func() error { return v.CheckCoverage(input.Buckets, input.Expectation) }},
		{OutcomePartition, func() error { return v.CheckOutcomePartition(input.Buckets, input.Expectation) }},
		{WillRunDidRunPairing, func() error { return v.CheckWillRunDidRunPairing(input.Buckets) }},
		{FullDispatchSet, func() error { return v.CheckFullDispatchSet(input.Buckets, input.Expectation) }},
		{EnvironmentPropagation, func() error { return v.CheckEnvironmentPropagation(input.Buckets) }},
		{WorkingDirectorySideEffect, func() error { return v.CheckWorkingDirectorySideEffect(input.Buckets, input.Expectation) }},
		{LifecycleClosure, func() error { return v.CheckLifecycleClosure(input.Buckets) }},
		{JUnitOutcomes, func() error { return v.CheckJUnitOutcomes(input.Records, input.Expectation) }},
	}

	var r Report
	for _, c := range checks {
		result := CheckResult{
			Invariant: c.invariant,
			Failures:  verificationFailures(c.invariant, c.check()),
		}
		if len(result.Failures) == 0 {
			v.logger.Donef("%s", c.invariant)
		}
		for _, f := range result.Failures {
			v.logger.Errorf("%s", f)
		}
		r.Results = append(r.Results, result)
	}
	return r
}

func verificationFailures(invariant Invariant, err error) []*VerificationFailure {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var failures []*VerificationFailure
		for _, e := range joined.Unwrap() {
			failures = append(failures, verificationFailures(invariant, e)...)
		}
		return failures
	}

	var verificationFailure *VerificationFailure
	if errors.As(err, &verificationFailure) {
		return []*VerificationFailure{verificationFailure}
	}
	return []*VerificationFailure{{Invariant: invariant, Details: err.Error()}}
}

// CheckCoverage verifies that the testing results cover exactly the tests expected to run.
func (v verifier) CheckCoverage(buckets Buckets, expectation Expectation) error {
	actual := map[string]bool{}
	for _, result := range buckets.testResults() {
		actual[result.TestEntry.MethodName] = true
	}

	expected := setOf(expectation.ShouldRun)
	if equalSets(actual, expected) {
		return nil
	}

	return failure(Coverage, sortedKeys(expected), sortedKeys(actual), fmt.Sprintf("not run: %v, unexpected: %v",
		difference(expectation.ShouldRun, actual), difference(sortedKeys(actual), expected)))
}

// CheckOutcomePartition verifies the succeeded attempts as a set and the failed attempts as a multiset.
func (v verifier) CheckOutcomePartition(buckets Buckets, expectation Expectation) error {
	green := map[string]bool{}
	var failed []string
	for _, result := range buckets.testResults() {
		for _, run := range result.TestRunResults {
			if run.Succeeded {
				green[result.TestEntry.MethodName] = true
			} else {
				failed = append(failed, result.TestEntry.MethodName)
			}
		}
	}

	var errs []error
	if expected := setOf(expectation.ShouldSucceed); !equalSets(green, expected) {
		errs = append(errs, failure(OutcomePartition, sortedKeys(expected), sortedKeys(green), "succeeded tests differ"))
	}
	if !equalMultisets(failed, expectation.ShouldFail) {
		errs = append(errs, failure(OutcomePartition, sortedCopy(expectation.ShouldFail), sortedCopy(failed), fmt.Sprintf("failed attempts differ, missing: %v, unexpected: %v",
			multisetDifference(expectation.ShouldFail, failed), multisetDifference(failed, expectation.ShouldFail))))
	}
	return errors.Join(errs...)
}

// CheckWillRunDidRunPairing verifies that every willRun event is closed by a didRun event for the same tests.
func (v verifier) CheckWillRunDidRunPairing(buckets Buckets) error {
	willRunEvents := buckets.runnerEvents(report.WillRun)
	didRunEvents := buckets.runnerEvents(report.DidRun)

	var willRun, didRun []string
	for _, event := range willRunEvents {
		for _, entry := range event.TestEntries {
			willRun = append(willRun, entry.MethodName)
		}
	}
	for _, event := range didRunEvents {
		for _, result := range event.Results {
			didRun = append(didRun, result.TestEntry.MethodName)
		}
	}

	if len(willRunEvents) == len(didRunEvents) && equalMultisets(willRun, didRun) {
		return nil
	}

	return failure(WillRunDidRunPairing,
		fmt.Sprintf("%d didRun events (one per willRun)", len(willRunEvents)),
		fmt.Sprintf("%d didRun events", len(didRunEvents)),
		fmt.Sprintf("without didRun: %v, without willRun: %v", multisetDifference(willRun, didRun), multisetDifference(didRun, willRun)))
}

// CheckFullDispatchSet verifies that every dispatched test, including the ones only needed for the runtime dump, got a willRun event.
func (v verifier) CheckFullDispatchSet(buckets Buckets, expectation Expectation) error {
	actual := map[string]bool{}
	for _, event := range buckets.runnerEvents(report.WillRun) {
		for _, entry := range event.TestEntries {
			actual[entry.MethodName] = true
		}
	}

	expected := setOf(expectation.Dispatched)
	if equalSets(actual, expected) {
		return nil
	}

	return failure(FullDispatchSet, sortedKeys(expected), sortedKeys(actual), fmt.Sprintf("not dispatched: %v", difference(expectation.Dispatched, actual)))
}

// CheckEnvironmentPropagation verifies that every runner event carries the working directory in its test context.
func (v verifier) CheckEnvironmentPropagation(buckets Buckets) error {
	var offending []string
	for i, envelope := range buckets.RunnerEvents {
		if envelope.RunnerEvent.TestContext.Environment[v.workingDirEnvKey] == "" {
			offending = append(offending, fmt.Sprintf("#%d (%s)", i, envelope.RunnerEvent.Type))
		}
	}
	if len(offending) == 0 {
		return nil
	}

	return failure(EnvironmentPropagation,
		fmt.Sprintf("%s set on every runner event", v.workingDirEnvKey),
		fmt.Sprintf("missing on %d of %d", len(offending), len(buckets.RunnerEvents)),
		fmt.Sprintf("runner events: %s", strings.Join(offending, ", ")))
}

// CheckWorkingDirectorySideEffect verifies the file the designated test writes into its working directory.
func (v verifier) CheckWorkingDirectorySideEffect(buckets Buckets, expectation Expectation) error {
	artifact := expectation.WorkingDirectoryArtifact
	if artifact == nil {
		v.logger.Debugf("No working directory artifact expected")
		return nil
	}

	event, ok := firstDidRunOf(buckets, artifact.TestMethod)
	if !ok {
		return failure(WorkingDirectorySideEffect, fmt.Sprintf("a didRun event for %s", artifact.TestMethod), "none", "")
	}

	workingDir := event.TestContext.Environment[v.workingDirEnvKey]
	if workingDir == "" {
		return failure(WorkingDirectorySideEffect, fmt.Sprintf("%s in the didRun event of %s", v.workingDirEnvKey, artifact.TestMethod), "not set", "")
	}

	pth := filepath.Join(workingDir, artifact.FileName)
	contents, err := os.ReadFile(pth)
	if err != nil {
		return failure(WorkingDirectorySideEffect, fmt.Sprintf("%q", artifact.Contents), "unreadable file", fmt.Sprintf("%s: %s", pth, err))
	}
	if string(contents) != artifact.Contents {
		return failure(WorkingDirectorySideEffect, fmt.Sprintf("%q", artifact.Contents), fmt.Sprintf("%q", string(contents)), pth)
	}

	return nil
}

func firstDidRunOf(buckets Buckets, method string) (report.RunnerEvent, bool) {
	for _, event := range buckets.runnerEvents(report.DidRun) {
		for _, result := range event.Results {
			if result.TestEntry.MethodName == method {
				return event, true
			}
		}
	}
	return report.RunnerEvent{}, false
}

// CheckLifecycleClosure verifies that the log ends with exactly one tearDown and contains no unknown events.
func (v verifier) CheckLifecycleClosure(buckets Buckets) error {
	var errs []error
	if len(buckets.TearDowns) != 1 {
		errs = append(errs, failure(LifecycleClosure, "1 tearDown event", fmt.Sprintf("%d tearDown events", len(buckets.TearDowns)), ""))
	}
	if len(buckets.Unknown) > 0 {
		var types []string
		for _, event := range buckets.Unknown {
			types = append(types, event.Type)
		}
		errs = append(errs, failure(LifecycleClosure, "no unknown events", fmt.Sprintf("%d unknown events", len(buckets.Unknown)), fmt.Sprintf("event types: %v", types)))
	}
	return errors.Join(errs...)
}

// CheckJUnitOutcomes verifies the final outcome of every test in the JUnit report.
// A test that failed and then succeeded on a retry is reported as succeeded.
func (v verifier) CheckJUnitOutcomes(records []report.TestCaseRecord, expectation Expectation) error {
	succeeded := map[string]bool{}
	failed := map[string]bool{}
	for _, record := range records {
		if record.Succeeded {
			succeeded[record.Name] = true
		} else {
			failed[record.Name] = true
		}
	}

	expectedSucceeded := setOf(expectation.ShouldSucceed)
	expectedFailed := map[string]bool{}
	for _, method := range expectation.ShouldFail {
		if !expectedSucceeded[method] {
			expectedFailed[method] = true
		}
	}

	var errs []error
	if len(records) != len(expectation.ShouldRun) {
		errs = append(errs, failure(JUnitOutcomes, fmt.Sprintf("%d test cases", len(expectation.ShouldRun)), fmt.Sprintf("%d test cases", len(records)), ""))
	}
	if !equalSets(succeeded, expectedSucceeded) {
		errs = append(errs, failure(JUnitOutcomes, sortedKeys(expectedSucceeded), sortedKeys(succeeded), "succeeded test cases differ"))
	}
	if !equalSets(failed, expectedFailed) {
		errs = append(errs, failure(JUnitOutcomes, sortedKeys(expectedFailed), sortedKeys(failed), "failed test cases differ"))
	}
	return errors.Join(errs...)
}
