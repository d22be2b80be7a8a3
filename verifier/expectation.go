package verifier

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorkingDirectoryArtifact is a file a test writes into its working directory.
type WorkingDirectoryArtifact struct {
	TestMethod string `yaml:"test_method"`
	FileName   string `yaml:"file_name"`
	Contents   string `yaml:"contents"`
}

// Expectation describes how a correct run of the test app looks like.
// ShouldFail is a multiset: a method is listed once per expected failed attempt.
// A method listed in both ShouldSucceed and ShouldFail failed first and succeeded on a retry.
type Expectation struct {
	ShouldRun                []string                  `yaml:"should_run"`
	ShouldSucceed            []string                  `yaml:"should_succeed"`
	ShouldFail               []string                  `yaml:"should_fail"`
	Dispatched               []string                  `yaml:"dispatched"`
	WorkingDirectoryArtifact *WorkingDirectoryArtifact `yaml:"working_directory_artifact,omitempty"`
}

// DefaultExpectation is the expected run of the bundled TestApp UI tests with one retry.
// fakeTest is only dispatched for the runtime dump.
func DefaultExpectation() Expectation {
	return Expectation{
		ShouldRun: []string{
			"testAlwaysSuccess",
			"testWritingToTestWorkingDir",
			"testSlowTest",
			"testAlwaysFails",
			"testQuickTest",
			"testMethodThatThrowsSwiftError",
		},
		ShouldSucceed: []string{
			"testAlwaysSuccess",
			"testWritingToTestWorkingDir",
			"testSlowTest",
			"testQuickTest",
		},
		ShouldFail: []string{
			"testAlwaysFails",
			"testAlwaysFails",
			"testMethodThatThrowsSwiftError",
			"testMethodThatThrowsSwiftError",
		},
		Dispatched: []string{
			"fakeTest",
			"testAlwaysSuccess",
			"testWritingToTestWorkingDir",
			"testSlowTest",
			"testQuickTest",
			"testAlwaysFails",
			"testMethodThatThrowsSwiftError",
		},
		WorkingDirectoryArtifact: &WorkingDirectoryArtifact{
			TestMethod: "testWritingToTestWorkingDir",
			FileName:   "test_artifact.txt",
			Contents:   "contents",
		},
	}
}

// LoadExpectation reads and validates a YAML expectation file.
func LoadExpectation(pth string) (Expectation, error) {
	content, err := os.ReadFile(pth)
	if err != nil {
		return Expectation{}, fmt.Errorf("failed to read expectation file: %w", err)
	}

	var expectation Expectation
	if err := yaml.Unmarshal(content, &expectation); err != nil {
		return Expectation{}, fmt.Errorf("failed to parse expectation file (%s): %w", pth, err)
	}

	if err := expectation.Validate(); err != nil {
		return Expectation{}, fmt.Errorf("invalid expectation file (%s): %w", pth, err)
	}

	return expectation, nil
}

// Validate checks that the expected outcomes are a subset of the expected runs, and those of the dispatched tests.
func (e Expectation) Validate() error {
	if len(e.ShouldRun) == 0 {
		return errors.New("should_run is empty")
	}

	run := setOf(e.ShouldRun)
	dispatched := setOf(e.Dispatched)

	var errs []error
	if missing := difference(e.ShouldSucceed, run); len(missing) > 0 {
		errs = append(errs, fmt.Errorf("should_succeed lists tests not in should_run: %v", missing))
	}
	if missing := difference(e.ShouldFail, run); len(missing) > 0 {
		errs = append(errs, fmt.Errorf("should_fail lists tests not in should_run: %v", missing))
	}
	if missing := difference(e.ShouldRun, dispatched); len(missing) > 0 {
		errs = append(errs, fmt.Errorf("should_run lists tests not in dispatched: %v", missing))
	}

	if artifact := e.WorkingDirectoryArtifact; artifact != nil {
		if artifact.FileName == "" {
			errs = append(errs, errors.New("working_directory_artifact.file_name is empty"))
		}
		if !run[artifact.TestMethod] {
			errs = append(errs, fmt.Errorf("working_directory_artifact.test_method is not in should_run: %s", artifact.TestMethod))
		}
	}

	return errors.Join(errs...)
}
