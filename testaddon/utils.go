package testaddon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
)

const metadataFileName = "test-info.json"

// TestAddon lays out test reports the way the test reports add-on reads them.
type TestAddon interface {
	ReplaceUnsupportedFilenameCharacters(s string) string
	CopyReport(sourcePath string, targetDir string) error
	SaveBundleMetadata(outputDir string, bundleName string) error
}

type testAddon struct {
	commandFactory command.Factory
	fileManager    fileutil.FileManager
	logger         log.Logger
}

// NewTestAddon ...
func NewTestAddon(commandFactory command.Factory, fileManager fileutil.FileManager, logger log.Logger) TestAddon {
	return &testAddon{
		commandFactory: commandFactory,
		fileManager:    fileManager,
		logger:         logger,
	}
}

// ReplaceUnsupportedFilenameCharacters replaces '/' and ':', which are unsupported in file names on macOS.
func (t testAddon) ReplaceUnsupportedFilenameCharacters(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ":", "-")
	return s
}

// CopyReport copies a report file or directory into targetDir, keeping its base name.
func (t testAddon) CopyReport(sourcePath string, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0700); err != nil {
		return fmt.Errorf("failed to create directory (%s): %w", targetDir, err)
	}

	// the trailing `/` copies the source into the dir instead of replacing it
	cmd := t.commandFactory.Create("cp", []string{"-a", sourcePath, targetDir + "/"}, nil)
	t.logger.Printf("$ %s", cmd.PrintableCommandArgs())
	if out, err := cmd.RunAndReturnTrimmedCombinedOutput(); err != nil {
		return fmt.Errorf("copy failed: %w, output: %s", err, out)
	}

	return nil
}

func (t testAddon) SaveBundleMetadata(outputDir string, bundleName string) error {
	type testBundle struct {
		BundleName string `json:"test-name"`
	}
	bytes, err := json.Marshal(testBundle{
		BundleName: bundleName,
	})
	if err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}
	if err := t.fileManager.Write(filepath.Join(outputDir, metadataFileName), string(bytes), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
