package testaddon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func Test_GivenNormalBundleName_WhenExport_ThenCreatesOutputStructure(t *testing.T) {
	runTest(t, "TestApp", "TestApp")
}

func Test_GivenBundleNameWithSpecialCharacters_WhenExport_ThenReplacesSpecialCharacters(t *testing.T) {
	runTest(t, "iPhone SE/iOS:10.3", "iPhone SE-iOS-10.3")
}

func Test_GivenNoReports_WhenExport_ThenFails(t *testing.T) {
	// Given
	exporter := NewExporter(newTestAddon())

	// When
	err := exporter.CopyAndSaveMetadata(AddonCopy{TargetAddonPath: t.TempDir(), TargetAddonBundleName: "TestApp"})

	// Then
	assert.EqualError(t, err, "no test reports to export")
}

func runTest(t *testing.T, bundleName string, expectedBundleName string) {
	// Given
	junitPath, tracePath, outputDir := prepareReports(t)

	exporter := NewExporter(newTestAddon())

	// When
	err := exporter.CopyAndSaveMetadata(AddonCopy{
		SourceReportPaths:     []string{junitPath, tracePath},
		TargetAddonPath:       outputDir,
		TargetAddonBundleName: bundleName,
	})

	// Then
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outputDir, expectedBundleName, "junit.combined.xml"))
	assert.FileExists(t, filepath.Join(outputDir, expectedBundleName, "trace.combined.json"))

	metadata, err := os.ReadFile(filepath.Join(outputDir, expectedBundleName, "test-info.json"))
	require.NoError(t, err)
	assert.Equal(t, expectedBundleName, gjson.GetBytes(metadata, "test-name").String())
}

func newTestAddon() TestAddon {
	return NewTestAddon(command.NewFactory(env.NewRepository()), fileutil.NewFileManager(), log.NewLogger())
}

func prepareReports(t *testing.T) (string, string, string) {
	tempDir := t.TempDir()
	fileManager := fileutil.NewFileManager()

	junitPath := filepath.Join(tempDir, "test_results", "junit.combined.xml")
	require.NoError(t, fileManager.Write(junitPath, "<testsuites/>", 0777))
	tracePath := filepath.Join(tempDir, "test_results", "trace.combined.json")
	require.NoError(t, fileManager.Write(tracePath, "{}", 0777))

	return junitPath, tracePath, filepath.Join(tempDir, "output")
}
