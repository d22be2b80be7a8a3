package testargfile

import (
	"encoding/json"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	// ScheduleStrategyIndividual schedules every test in its own bucket.
	ScheduleStrategyIndividual = "individual"
	TestTypeUITest             = "uiTest"
	runtimeDumpKindAppTest     = "appTest"
	allTestsPredicate          = "allProvidedByRuntimeDump"
	defaultPriority            = 500
)

// TestToRun selects tests of the test bundle.
type TestToRun struct {
	PredicateType string `json:"predicateType"`
	TestName      string `json:"testName,omitempty"`
}

// AllTests selects every test the runtime dump discovers.
func AllTests() TestToRun {
	return TestToRun{PredicateType: allTestsPredicate}
}

// XcTestBundle ...
type XcTestBundle struct {
	Location        string `json:"location"`
	RuntimeDumpKind string `json:"runtimeDumpKind"`
}

// BuildArtifacts are the locations of the built test app products.
type BuildArtifacts struct {
	AppBundle    string       `json:"appBundle"`
	Runner       string       `json:"runner"`
	XcTestBundle XcTestBundle `json:"xcTestBundle"`
}

// Entry describes the tests to run on a single destination.
type Entry struct {
	TestsToRun       []TestToRun       `json:"testsToRun"`
	BuildArtifacts   BuildArtifacts    `json:"buildArtifacts"`
	Environment      map[string]string `json:"environment"`
	NumberOfRetries  int               `json:"numberOfRetries"`
	ScheduleStrategy string            `json:"scheduleStrategy"`
	TestDestination  Destination       `json:"testDestination"`
	TestType         string            `json:"testType"`
}

// TestArgFile is the content of the file passed to the runner with --test-arg-file.
type TestArgFile struct {
	Entries                       []Entry                    `json:"entries"`
	Priority                      int                        `json:"priority"`
	TestDestinationConfigurations []DestinationConfiguration `json:"testDestinationConfigurations"`
}

// Params ...
type Params struct {
	AppBundle        string
	UITestsRunner    string
	XcTestBundle     string
	Environment      map[string]string
	NumberOfRetries  int
	ScheduleStrategy string
	Destinations     []DestinationConfiguration
}

// New returns a TestArgFile running every test of the app on each destination.
func New(params Params) TestArgFile {
	environment := params.Environment
	if environment == nil {
		environment = map[string]string{}
	}

	scheduleStrategy := params.ScheduleStrategy
	if scheduleStrategy == "" {
		scheduleStrategy = ScheduleStrategyIndividual
	}

	file := TestArgFile{
		Priority:                      defaultPriority,
		TestDestinationConfigurations: params.Destinations,
	}
	for _, destination := range params.Destinations {
		file.Entries = append(file.Entries, Entry{
			TestsToRun: []TestToRun{AllTests()},
			BuildArtifacts: BuildArtifacts{
				AppBundle: params.AppBundle,
				Runner:    params.UITestsRunner,
				XcTestBundle: XcTestBundle{
					Location:        params.XcTestBundle,
					RuntimeDumpKind: runtimeDumpKindAppTest,
				},
			},
			Environment:      environment,
			NumberOfRetries:  params.NumberOfRetries,
			ScheduleStrategy: scheduleStrategy,
			TestDestination:  destination.TestDestination,
			TestType:         TestTypeUITest,
		})
	}

	return file
}

// Writer ...
type Writer interface {
	Write(pth string, file TestArgFile) error
}

type writer struct {
	fileManager fileutil.FileManager
	logger      log.Logger
}

// NewWriter ...
func NewWriter(fileManager fileutil.FileManager, logger log.Logger) Writer {
	return &writer{
		fileManager: fileManager,
		logger:      logger,
	}
}

func (w writer) Write(pth string, file TestArgFile) error {
	content, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode test arg file: %w", err)
	}

	if err := w.fileManager.Write(pth, string(content), 0644); err != nil {
		return fmt.Errorf("failed to write test arg file (%s): %w", pth, err)
	}

	w.logger.Debugf("Test arg file written to: %s", pth)
	w.logger.Debugf("%s", content)

	return nil
}
