package testargfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func Test_GivenDestinationsFile_WhenRead_ThenPatchVersionIsDropped(t *testing.T) {
	// Given
	pth := filepath.Join(t.TempDir(), "destination_iphone_se_ios103.json")
	content := `[
  {
    "testDestination": {"deviceType": "iPhone SE", "iOSVersion": "10.3.1"},
    "reportOutput": {"junit": "auxiliary/tempfolder/test-results/iphone_se_ios_103.xml", "tracingReport": "auxiliary/tempfolder/test-results/iphone_se_ios_103.json"}
  }
]`
	require.NoError(t, os.WriteFile(pth, []byte(content), 0644))

	// When
	configurations, err := ReadDestinationConfigurations(pth)

	// Then
	require.NoError(t, err)
	require.Len(t, configurations, 1)
	assert.Equal(t, Destination{DeviceType: "iPhone SE", IOSVersion: "10.3", ResourceRequirement: 1}, configurations[0].TestDestination)
	assert.Equal(t, "auxiliary/tempfolder/test-results/iphone_se_ios_103.xml", configurations[0].ReportOutput.JUnit)
}

func TestNormalizeDestination(t *testing.T) {
	tests := []struct {
		name        string
		destination Destination
		want        Destination
		wantErr     bool
	}{
		{
			name:        "major and minor kept",
			destination: Destination{DeviceType: "iPhone X", IOSVersion: "11.3"},
			want:        Destination{DeviceType: "iPhone X", IOSVersion: "11.3", ResourceRequirement: 1},
		},
		{
			name:        "patch dropped",
			destination: Destination{DeviceType: "iPhone SE", IOSVersion: "10.3.1", ResourceRequirement: 2},
			want:        Destination{DeviceType: "iPhone SE", IOSVersion: "10.3", ResourceRequirement: 2},
		},
		{
			name:        "major only",
			destination: Destination{DeviceType: "iPhone SE", IOSVersion: "10"},
			wantErr:     true,
		},
		{
			name:        "not a version",
			destination: Destination{DeviceType: "iPhone SE", IOSVersion: "ten.three"},
			wantErr:     true,
		},
		{
			name:        "negative resource requirement",
			destination: Destination{DeviceType: "iPhone SE", IOSVersion: "10.3", ResourceRequirement: -1},
			wantErr:     true,
		},
		{
			name:        "missing device type",
			destination: Destination{IOSVersion: "10.3"},
			wantErr:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDestination(tt.destination)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_GivenTwoDestinations_WhenTestArgFileWritten_ThenHasEntryPerDestination(t *testing.T) {
	// Given
	destinations := []DestinationConfiguration{
		{TestDestination: Destination{DeviceType: "iPhone SE", IOSVersion: "10.3", ResourceRequirement: 1}},
		{TestDestination: Destination{DeviceType: "iPhone X", IOSVersion: "11.3", ResourceRequirement: 1}},
	}
	file := New(Params{
		AppBundle:       "/derived/TestApp.app",
		UITestsRunner:   "/derived/TestAppUITests-Runner.app",
		XcTestBundle:    "/derived/TestAppUITests-Runner.app/PlugIns/TestAppUITests.xctest",
		Environment:     map[string]string{"EMCEE_TESTS_WORKING_DIRECTORY": "/tmp/wd"},
		NumberOfRetries: 1,
		Destinations:    destinations,
	})
	pth := filepath.Join(t.TempDir(), "args", "test_arg_file.json")
	writer := NewWriter(fileutil.NewFileManager(), log.NewLogger())

	// When
	err := writer.Write(pth, file)

	// Then
	require.NoError(t, err)
	content, err := os.ReadFile(pth)
	require.NoError(t, err)

	json := string(content)
	assert.Equal(t, int64(2), gjson.Get(json, "entries.#").Int())
	assert.Equal(t, "iPhone X", gjson.Get(json, "entries.1.testDestination.deviceType").String())
	assert.Equal(t, "/derived/TestApp.app", gjson.Get(json, "entries.0.buildArtifacts.appBundle").String())
	assert.Equal(t, "/derived/TestAppUITests-Runner.app/PlugIns/TestAppUITests.xctest", gjson.Get(json, "entries.0.buildArtifacts.xcTestBundle.location").String())
	assert.Equal(t, "/tmp/wd", gjson.Get(json, "entries.0.environment.EMCEE_TESTS_WORKING_DIRECTORY").String())
	assert.Equal(t, int64(1), gjson.Get(json, "entries.0.numberOfRetries").Int())
	assert.Equal(t, ScheduleStrategyIndividual, gjson.Get(json, "entries.0.scheduleStrategy").String())
	assert.Equal(t, allTestsPredicate, gjson.Get(json, "entries.0.testsToRun.0.predicateType").String())
	assert.Equal(t, TestTypeUITest, gjson.Get(json, "entries.0.testType").String())
	assert.Equal(t, int64(2), gjson.Get(json, "testDestinationConfigurations.#").Int())
}

func Test_GivenNoEnvironment_WhenNew_ThenEnvironmentIsEmptyObject(t *testing.T) {
	// Given
	params := Params{Destinations: []DestinationConfiguration{{TestDestination: Destination{DeviceType: "iPhone SE", IOSVersion: "10.3"}}}}

	// When
	file := New(params)

	// Then
	require.Len(t, file.Entries, 1)
	assert.NotNil(t, file.Entries[0].Environment)
}
