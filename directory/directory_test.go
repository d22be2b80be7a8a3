package directory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GivenAutoRemovedTemporaryDirectory_WhenClosed_ThenSubtreeIsRemoved(t *testing.T) {
	// Given
	dir, err := createFactory().CreateTemporary("directory-test", true)
	require.NoError(t, err)

	sub, err := dir.SubDirectory("nested")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sub.Path("file.txt"), []byte("content"), 0600))

	// When
	dir.Close()

	// Then
	assert.NoDirExists(t, dir.Root())
}

func Test_GivenKeptDirectory_WhenClosed_ThenSubtreeIsKept(t *testing.T) {
	// Given
	pth := filepath.Join(t.TempDir(), "kept")
	dir, err := createFactory().Create(pth, false)
	require.NoError(t, err)

	// When
	dir.Close()

	// Then
	assert.DirExists(t, pth)
}

func Test_GivenDirectory_WhenSubDirectoryAlreadyExists_ThenFails(t *testing.T) {
	// Given
	dir, err := createFactory().Create(t.TempDir(), false)
	require.NoError(t, err)
	_, err = dir.SubDirectory("results")
	require.NoError(t, err)

	// When
	_, err = dir.SubDirectory("results")

	// Then
	assert.Error(t, err)
}

func Test_GivenDirectory_WhenSubDirectoryParentIsMissing_ThenFails(t *testing.T) {
	// Given
	dir, err := createFactory().Create(t.TempDir(), false)
	require.NoError(t, err)

	// When
	_, err = dir.SubDirectory(filepath.Join("missing", "results"))

	// Then
	assert.Error(t, err)
}

func Test_GivenAutoRemovedParent_WhenSubDirectoryCreated_ThenSubDirectoryIsIndependentOwner(t *testing.T) {
	// Given
	parent, err := createFactory().Create(t.TempDir(), false)
	require.NoError(t, err)
	sub, err := parent.SubDirectoryAutoRemoved("scratch")
	require.NoError(t, err)
	kept, err := parent.SubDirectory("kept")
	require.NoError(t, err)

	// When
	sub.Close()
	kept.Close()

	// Then
	assert.NoDirExists(t, sub.Root())
	assert.DirExists(t, kept.Root())
	assert.DirExists(t, parent.Root())
}

func Test_GivenDirectory_WhenPathIsJoined_ThenNothingIsCreated(t *testing.T) {
	// Given
	dir, err := createFactory().Create(t.TempDir(), false)
	require.NoError(t, err)

	// When
	pth := dir.Path("a", "b.txt")

	// Then
	assert.Equal(t, filepath.Join(dir.Root(), "a", "b.txt"), pth)
	assert.NoFileExists(t, pth)
}

func createFactory() Factory {
	return NewFactory(pathutil.NewPathProvider(), fileutil.NewFileManager(), log.NewLogger())
}
