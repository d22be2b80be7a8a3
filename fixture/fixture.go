package fixture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-xcode/v2/xcodeversion"
	"github.com/bitrise-steplib/steps-runner-smoke-test/directory"
	"github.com/bitrise-steplib/steps-runner-smoke-test/fixturecache"
	"github.com/bitrise-steplib/steps-runner-smoke-test/process"
	"github.com/bitrise-steplib/steps-runner-smoke-test/testargfile"
)

const (
	runnerKey = "smoke_tests_runner"
	appKey    = "smoke_tests_app"
	pluginKey = "smoke_tests_plugin"
	resultKey = "smoke_tests_result"
)

// Executable is a built command line tool.
type Executable struct {
	Path string `json:"path"`
}

// IosApp is the build-for-testing output of the test app.
type IosApp struct {
	AppPath           string `json:"app_path"`
	UITestsRunnerPath string `json:"ui_tests_runner_path"`
	XcTestBundlePath  string `json:"xctest_bundle_path"`
	DerivedDataPath   string `json:"derived_data_path"`
}

// Plugin is a built runner plugin bundle.
type Plugin struct {
	Path string `json:"path"`
}

// DestinationReport lists the reports written for a single test destination.
type DestinationReport struct {
	JUnitPath string `json:"junit_path"`
	TracePath string `json:"trace_path"`
}

// RunResult describes a finished runner invocation and where it left its reports.
type RunResult struct {
	CurrentDirectory   string              `json:"current_directory"`
	TempFolder         string              `json:"temp_folder"`
	TestResultsDir     string              `json:"test_results_dir"`
	JUnitPath          string              `json:"junit_path"`
	TracePath          string              `json:"trace_path"`
	TestArgFilePath    string              `json:"test_arg_file_path"`
	EventLogPath       string              `json:"event_log_path"`
	DestinationReports []DestinationReport `json:"destination_reports"`
	CommandLine        string              `json:"command_line"`
	LogPath            string              `json:"log_path"`
	Duration           time.Duration       `json:"duration"`
}

// Provider returns the fixtures of the smoke test, building each at most once per cache store.
type Provider interface {
	Runner(ctx context.Context, params RunnerParams) (Executable, error)
	IosApp(ctx context.Context, params IosAppParams) (IosApp, error)
	Plugin(ctx context.Context, params PluginParams) (Plugin, error)
	RunResult(ctx context.Context, params RunParams) (RunResult, error)
	Close()
}

// Options ...
type Options struct {
	// KeepDirectories keeps the directories created for the fixtures when the Provider is closed.
	KeepDirectories bool
	// PersistentStore is set when cached fixtures outlive the session, their directories are never removed then.
	PersistentStore bool
	// Revalidate rebuilds a cached fixture whose files no longer exist.
	Revalidate bool
}

type provider struct {
	logger           log.Logger
	cache            *fixturecache.Cache
	invoker          process.Invoker
	directoryFactory directory.Factory
	pathChecker      pathutil.PathChecker
	fileManager      fileutil.FileManager
	argFileWriter    testargfile.Writer
	xcodeVersion     xcodeversion.Version
	opts             Options

	mu          sync.Mutex
	directories []*directory.Directory
}

// NewProvider ...
func NewProvider(
	logger log.Logger,
	cache *fixturecache.Cache,
	invoker process.Invoker,
	directoryFactory directory.Factory,
	pathChecker pathutil.PathChecker,
	fileManager fileutil.FileManager,
	argFileWriter testargfile.Writer,
	xcodeVersion xcodeversion.Version,
	opts Options,
) Provider {
	return &provider{
		logger:           logger,
		cache:            cache,
		invoker:          invoker,
		directoryFactory: directoryFactory,
		pathChecker:      pathChecker,
		fileManager:      fileManager,
		argFileWriter:    argFileWriter,
		xcodeVersion:     xcodeVersion,
		opts:             opts,
	}
}

// Close ends the scope of every directory created for a fixture.
func (p *provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, dir := range p.directories {
		dir.Close()
	}
	p.directories = nil
}

func (p *provider) temporaryDirectory(prefix string) (*directory.Directory, error) {
	autoRemove := !p.opts.KeepDirectories && !p.opts.PersistentStore
	dir, err := p.directoryFactory.CreateTemporary(prefix, autoRemove)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.directories = append(p.directories, dir)
	p.mu.Unlock()

	return dir, nil
}

// cacheKey derives the cache key of a fixture from its name and every parameter it is built from,
// a changed parameter never replays a stale fixture from a persistent store.
func cacheKey(name string, params interface{}) (string, error) {
	content, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s parameters: %w", name, err)
	}
	sum := sha256.Sum256(content)
	return name + "-" + hex.EncodeToString(sum[:8]), nil
}

// get returns the cached fixture, rebuilding it when revalidation is on and a path it points to is gone.
func get[T any](p *provider, key string, produce iter.Seq2[T, error], paths func(T) []string) (T, error) {
	value, err := fixturecache.GetOrCompute(p.cache, key, produce)
	if err != nil || !p.opts.Revalidate {
		return value, err
	}

	for _, pth := range paths(value) {
		exists, err := p.pathChecker.IsPathExists(pth)
		if err != nil {
			return value, fmt.Errorf("failed to check fixture path (%s): %w", pth, err)
		}
		if exists {
			continue
		}

		p.logger.Warnf("Cached fixture (%s) points to a missing path (%s), rebuilding it", key, pth)
		if err := p.cache.Invalidate(key); err != nil {
			return value, fmt.Errorf("failed to invalidate fixture (%s): %w", key, err)
		}
		return fixturecache.GetOrCompute(p.cache, key, produce)
	}

	return value, nil
}
