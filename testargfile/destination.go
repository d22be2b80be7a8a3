package testargfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-version"
)

const defaultResourceRequirement = 1

// Destination is a simulator device type and runtime the tests run on.
type Destination struct {
	DeviceType          string `json:"deviceType"`
	IOSVersion          string `json:"iOSVersion"`
	ResourceRequirement int    `json:"resourceRequirement,omitempty"`
}

// ReportOutput lists the per destination reports the runner writes.
type ReportOutput struct {
	JUnit         string `json:"junit,omitempty"`
	TracingReport string `json:"tracingReport,omitempty"`
}

// DestinationConfiguration is one element of a --test-destinations file.
type DestinationConfiguration struct {
	TestDestination Destination  `json:"testDestination"`
	ReportOutput    ReportOutput `json:"reportOutput"`
}

// ReadDestinationConfigurations reads and normalizes a --test-destinations file.
func ReadDestinationConfigurations(pth string) ([]DestinationConfiguration, error) {
	content, err := os.ReadFile(pth)
	if err != nil {
		return nil, fmt.Errorf("failed to read test destinations (%s): %w", pth, err)
	}

	var configurations []DestinationConfiguration
	if err := json.Unmarshal(content, &configurations); err != nil {
		return nil, fmt.Errorf("failed to parse test destinations (%s): %w", pth, err)
	}

	for i, configuration := range configurations {
		destination, err := NormalizeDestination(configuration.TestDestination)
		if err != nil {
			return nil, fmt.Errorf("invalid test destination in %s: %w", pth, err)
		}
		configurations[i].TestDestination = destination
	}

	return configurations, nil
}

// NormalizeDestination validates d and drops the patch component of its iOS version:
// simulator runtimes are looked up by major.minor, asking for 10.3.1 would find nothing.
func NormalizeDestination(d Destination) (Destination, error) {
	if d.DeviceType == "" {
		return Destination{}, fmt.Errorf("device type is empty")
	}

	if d.ResourceRequirement == 0 {
		d.ResourceRequirement = defaultResourceRequirement
	}
	if d.ResourceRequirement < 1 {
		return Destination{}, fmt.Errorf("invalid resource requirement: %d, minimum allowed value is 1", d.ResourceRequirement)
	}

	if len(strings.Split(d.IOSVersion, ".")) < 2 {
		return Destination{}, fmt.Errorf("invalid iOS version: %s", d.IOSVersion)
	}
	v, err := version.NewVersion(d.IOSVersion)
	if err != nil {
		return Destination{}, fmt.Errorf("invalid iOS version: %s: %w", d.IOSVersion, err)
	}
	segments := v.Segments()
	d.IOSVersion = fmt.Sprintf("%d.%d", segments[0], segments[1])

	return d, nil
}
