package report

import "encoding/json"

// EventKind is the value of the top level eventType discriminator of an event log element.
type EventKind string

const (
	TestingResultEventKind EventKind = "didObtainTestingResult"
	RunnerEventKind        EventKind = "runnerEvent"
	TearDownEventKind      EventKind = "tearDown"
	UnknownEventKind       EventKind = "unknown"
)

// Event is one element of the plugin event log.
// Implementations: *TestingResultEvent, *RunnerEventEnvelope, *TearDownEvent, *UnknownEvent.
type Event interface {
	Kind() EventKind
}

// TestEntry identifies a test method.
type TestEntry struct {
	ClassName  string `json:"className"`
	MethodName string `json:"methodName"`
}

// TestRunResult is the outcome of a single attempt.
type TestRunResult struct {
	Succeeded bool `json:"succeeded"`
}

// TestEntryResult lists every attempt of a test.
type TestEntryResult struct {
	TestEntry      TestEntry       `json:"testEntry"`
	TestRunResults []TestRunResult `json:"testRunResults"`
}

// TestingResult ...
type TestingResult struct {
	UnfilteredResults []TestEntryResult `json:"unfilteredResults"`
}

// TestingResultEvent is emitted each time the runner obtains the results of a bucket.
type TestingResultEvent struct {
	TestingResult TestingResult `json:"testingResult"`
}

func (*TestingResultEvent) Kind() EventKind { return TestingResultEventKind }

// RunnerEventType is the discriminator of the nested runner event.
type RunnerEventType string

const (
	WillRun      RunnerEventType = "willRun"
	DidRun       RunnerEventType = "didRun"
	TestStarted  RunnerEventType = "testStarted"
	TestFinished RunnerEventType = "testFinished"
)

// Known reports whether t is one of the runner event types above.
func (t RunnerEventType) Known() bool {
	switch t {
	case WillRun, DidRun, TestStarted, TestFinished:
		return true
	default:
		return false
	}
}

// TestContext is the context the tests of a runner event are executed in.
type TestContext struct {
	Environment map[string]string `json:"environment"`
}

// RunnerEvent is a lifecycle notification of a test run.
// TestEntries is set for willRun, Results for didRun, TestEntry for testStarted and testFinished.
type RunnerEvent struct {
	Type        RunnerEventType   `json:"eventType"`
	TestEntries []TestEntry       `json:"testEntries,omitempty"`
	Results     []TestEntryResult `json:"results,omitempty"`
	TestEntry   *TestEntry        `json:"testEntry,omitempty"`
	Succeeded   *bool             `json:"succeeded,omitempty"`
	TestContext TestContext       `json:"testContext"`
}

// RunnerEventEnvelope ...
type RunnerEventEnvelope struct {
	RunnerEvent RunnerEvent `json:"runnerEvent"`
}

func (*RunnerEventEnvelope) Kind() EventKind { return RunnerEventKind }

// TearDownEvent is emitted once when the runner shuts its plugins down.
type TearDownEvent struct{}

func (*TearDownEvent) Kind() EventKind { return TearDownEventKind }

// UnknownEvent keeps an element with an unrecognized eventType.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (*UnknownEvent) Kind() EventKind { return UnknownEventKind }
