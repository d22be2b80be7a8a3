package report

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/tidwall/gjson"
)

// TestCaseRecord is a non skipped test case of a JUnit report.
// FailureDetail is set if and only if the case did not succeed.
type TestCaseRecord struct {
	Name          string
	ClassName     string
	Succeeded     bool
	FailureDetail *string
}

// Reader parses the reports written by the runner.
type Reader interface {
	ParseJUnit(pth string) ([]TestCaseRecord, error)
	ParseEventLog(pth string) ([]Event, error)
	RequireArtifacts(pths ...string) error
}

type reader struct {
	pathChecker pathutil.PathChecker
	logger      log.Logger
}

// NewReader ...
func NewReader(pathChecker pathutil.PathChecker, logger log.Logger) Reader {
	return &reader{
		pathChecker: pathChecker,
		logger:      logger,
	}
}

// RequireArtifacts returns a joined *MissingArtifactError for every path that does not exist.
func (r reader) RequireArtifacts(pths ...string) error {
	var errs []error
	for _, pth := range pths {
		exists, err := r.pathChecker.IsPathExists(pth)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to check if %s exists: %w", pth, err))
			continue
		}
		if !exists {
			errs = append(errs, &MissingArtifactError{Path: pth})
		}
	}
	return errors.Join(errs...)
}

func (r reader) open(pth string) (*os.File, error) {
	f, err := os.Open(pth)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &MissingArtifactError{Path: pth}
	}
	return f, err
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitTestCase struct {
	Name      string         `xml:"name,attr"`
	ClassName string         `xml:"classname,attr"`
	Failure   *string        `xml:"failure,attr"`
	Skipped   []struct{}     `xml:"skipped"`
	Failures  []junitFailure `xml:"failure"`
}

func (c junitTestCase) record() TestCaseRecord {
	record := TestCaseRecord{
		Name:      c.Name,
		ClassName: c.ClassName,
		Succeeded: true,
	}

	switch {
	case len(c.Failures) > 0:
		detail := c.Failures[0].Body
		if detail == "" {
			detail = c.Failures[0].Message
		}
		record.Succeeded = false
		record.FailureDetail = &detail
	case c.Failure != nil:
		detail := *c.Failure
		record.Succeeded = false
		record.FailureDetail = &detail
	}

	return record
}

// ParseJUnit returns the test cases found at any depth of the document, skipped cases are left out.
func (r reader) ParseJUnit(pth string) ([]TestCaseRecord, error) {
	f, err := r.open(pth)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			r.logger.Warnf("Failed to close %s: %s", pth, err)
		}
	}()

	var records []TestCaseRecord
	hasRoot := false
	decoder := xml.NewDecoder(f)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MalformedArtifactError{Path: pth, Err: err}
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		hasRoot = true
		if start.Name.Local != "testcase" {
			continue
		}

		var testCase junitTestCase
		if err := decoder.DecodeElement(&testCase, &start); err != nil {
			return nil, &MalformedArtifactError{Path: pth, Err: err}
		}
		if len(testCase.Skipped) > 0 {
			r.logger.Debugf("Skipped test case: %s", testCase.Name)
			continue
		}
		records = append(records, testCase.record())
	}

	if !hasRoot {
		return nil, &MalformedArtifactError{Path: pth, Err: errors.New("no root element")}
	}

	return records, nil
}

// ParseEventLog decodes the JSON array written by the event logging plugin.
// Elements with an unrecognized eventType are kept as *UnknownEvent, a missing eventType is an error.
func (r reader) ParseEventLog(pth string) ([]Event, error) {
	f, err := r.open(pth)
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(f)
	if closeErr := f.Close(); closeErr != nil {
		r.logger.Warnf("Failed to close %s: %s", pth, closeErr)
	}
	if err != nil {
		return nil, &MalformedArtifactError{Path: pth, Err: err}
	}

	events, err := parseEvents(content)
	if err != nil {
		return nil, &MalformedArtifactError{Path: pth, Err: err}
	}

	r.logger.Debugf("%d events read from %s", len(events), pth)

	return events, nil
}

func parseEvents(content []byte) ([]Event, error) {
	if !gjson.ValidBytes(content) {
		return nil, errors.New("invalid JSON")
	}

	document := gjson.ParseBytes(content)
	if !document.IsArray() {
		return nil, errors.New("event log is not a JSON array")
	}

	var events []Event
	var parseErr error
	document.ForEach(func(idx, element gjson.Result) bool {
		event, err := parseEvent(element)
		if err != nil {
			parseErr = fmt.Errorf("event %d: %w", idx.Int(), err)
			return false
		}
		events = append(events, event)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return events, nil
}

func parseEvent(element gjson.Result) (Event, error) {
	eventType := element.Get("eventType")
	if !eventType.Exists() {
		return nil, errors.New("missing eventType")
	}
	if eventType.Type != gjson.String {
		return nil, fmt.Errorf("eventType is not a string: %s", eventType.Raw)
	}

	var event Event
	switch EventKind(eventType.String()) {
	case TestingResultEventKind:
		event = &TestingResultEvent{}
	case RunnerEventKind:
		runnerEventType := element.Get("runnerEvent.eventType")
		if !runnerEventType.Exists() {
			return nil, errors.New("runnerEvent without a nested eventType")
		}
		if !RunnerEventType(runnerEventType.String()).Known() {
			return &UnknownEvent{
				Type: eventType.String() + "/" + runnerEventType.String(),
				Raw:  json.RawMessage(element.Raw),
			}, nil
		}
		event = &RunnerEventEnvelope{}
	case TearDownEventKind:
		event = &TearDownEvent{}
	default:
		return &UnknownEvent{
			Type: eventType.String(),
			Raw:  json.RawMessage(element.Raw),
		}, nil
	}

	if err := json.Unmarshal([]byte(element.Raw), event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", eventType.String(), err)
	}
	return event, nil
}
