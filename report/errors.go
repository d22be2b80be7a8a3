package report

import "fmt"

// MissingArtifactError is returned when an expected report file does not exist.
type MissingArtifactError struct {
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("expected to have file at: %s", e.Path)
}

// MalformedArtifactError is returned when a report file exists but can not be parsed.
type MalformedArtifactError struct {
	Path string
	Err  error
}

func (e *MalformedArtifactError) Error() string {
	return fmt.Sprintf("malformed report (%s): %s", e.Path, e.Err)
}

func (e *MalformedArtifactError) Unwrap() error {
	return e.Err
}
