package directory

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// Directory owns a filesystem subtree. When created with autoRemove the
// subtree is deleted on Close.
type Directory struct {
	path        string
	autoRemove  bool
	fileManager fileutil.FileManager
	logger      log.Logger

	closeOnce sync.Once
}

// Factory creates directories sharing the same collaborators.
type Factory struct {
	pathProvider pathutil.PathProvider
	fileManager  fileutil.FileManager
	logger       log.Logger
}

// NewFactory ...
func NewFactory(pathProvider pathutil.PathProvider, fileManager fileutil.FileManager, logger log.Logger) Factory {
	return Factory{
		pathProvider: pathProvider,
		fileManager:  fileManager,
		logger:       logger,
	}
}

// Create takes ownership of pth, creating it (and its parents) if needed.
func (f Factory) Create(pth string, autoRemove bool) (*Directory, error) {
	if err := os.MkdirAll(pth, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory (%s): %w", pth, err)
	}

	absPth, err := filepath.Abs(pth)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of (%s): %w", pth, err)
	}

	return f.newDirectory(absPth, autoRemove), nil
}

// CreateTemporary creates a new directory under the OS temp dir.
func (f Factory) CreateTemporary(prefix string, autoRemove bool) (*Directory, error) {
	pth, err := f.pathProvider.CreateTempDir(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}

	return f.newDirectory(pth, autoRemove), nil
}

func (f Factory) newDirectory(pth string, autoRemove bool) *Directory {
	return &Directory{
		path:        pth,
		autoRemove:  autoRemove,
		fileManager: f.fileManager,
		logger:      f.logger,
	}
}

// Root returns the owned path.
func (d *Directory) Root() string {
	return d.path
}

// AutoRemove reports whether Close deletes the subtree.
func (d *Directory) AutoRemove() bool {
	return d.autoRemove
}

// Path joins the given elements onto the owned path without touching the filesystem.
func (d *Directory) Path(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// SubDirectory creates a single new directory level under the owned path.
// It fails if the parent is missing or the directory already exists.
// The returned directory is an independent owner and is never auto removed.
func (d *Directory) SubDirectory(relPth string) (*Directory, error) {
	return d.subDirectory(relPth, false)
}

// SubDirectoryAutoRemoved is like SubDirectory, but the returned directory removes
// its own subtree on Close.
func (d *Directory) SubDirectoryAutoRemoved(relPth string) (*Directory, error) {
	return d.subDirectory(relPth, true)
}

func (d *Directory) subDirectory(relPth string, autoRemove bool) (*Directory, error) {
	pth := d.Path(relPth)
	if err := os.Mkdir(pth, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sub directory (%s): %w", pth, err)
	}

	return &Directory{
		path:        pth,
		autoRemove:  autoRemove,
		fileManager: d.fileManager,
		logger:      d.logger,
	}, nil
}

// Close ends the directory's scope. Removal errors are logged, never returned,
// so they can not mask the outcome of the work done inside the directory.
func (d *Directory) Close() {
	d.closeOnce.Do(func() {
		if !d.autoRemove {
			return
		}

		d.logger.Debugf("Removing directory: %s", d.path)
		if err := d.fileManager.RemoveAll(d.path); err != nil {
			d.logger.Warnf("Failed to remove directory (%s): %s", d.path, err)
		}
	})
}
