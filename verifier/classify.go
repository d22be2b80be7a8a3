package verifier

import "github.com/bitrise-steplib/steps-runner-smoke-test/report"

// Buckets partitions an event log by event kind, keeping the log order inside each bucket.
type Buckets struct {
	TestingResults []*report.TestingResultEvent
	RunnerEvents   []*report.RunnerEventEnvelope
	TearDowns      []*report.TearDownEvent
	Unknown        []*report.UnknownEvent
}

// Classify sorts events into Buckets.
func Classify(events []report.Event) Buckets {
	var buckets Buckets
	for _, event := range events {
		switch event.Kind() {
		case report.TestingResultEventKind:
			buckets.TestingResults = append(buckets.TestingResults, event.(*report.TestingResultEvent))
		case report.RunnerEventKind:
			envelope := event.(*report.RunnerEventEnvelope)
			if !envelope.RunnerEvent.Type.Known() {
				buckets.Unknown = append(buckets.Unknown, &report.UnknownEvent{Type: string(report.RunnerEventKind) + "/" + string(envelope.RunnerEvent.Type)})
				continue
			}
			buckets.RunnerEvents = append(buckets.RunnerEvents, envelope)
		case report.TearDownEventKind:
			buckets.TearDowns = append(buckets.TearDowns, event.(*report.TearDownEvent))
		case report.UnknownEventKind:
			buckets.Unknown = append(buckets.Unknown, event.(*report.UnknownEvent))
		}
	}
	return buckets
}

func (b Buckets) runnerEvents(eventType report.RunnerEventType) []report.RunnerEvent {
	var events []report.RunnerEvent
	for _, envelope := range b.RunnerEvents {
		if envelope.RunnerEvent.Type == eventType {
			events = append(events, envelope.RunnerEvent)
		}
	}
	return events
}

func (b Buckets) testResults() []report.TestEntryResult {
	var results []report.TestEntryResult
	for _, event := range b.TestingResults {
		results = append(results, event.TestingResult.UnfilteredResults...)
	}
	return results
}
