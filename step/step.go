package step

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-runner-smoke-test/fixture"
	"github.com/bitrise-steplib/steps-runner-smoke-test/fixturecache"
	"github.com/bitrise-steplib/steps-runner-smoke-test/verifier"
)

// Input ...
type Input struct {
	// Fixtures
	RunnerPackageDir        string `env:"runner_package_dir,required"`
	RunnerProduct           string `env:"runner_product,required"`
	TestAppProjectDir       string `env:"test_app_project_dir,required"`
	TestAppScheme           string `env:"test_app_scheme,required"`
	TestAppBuildDestination string `env:"test_app_build_destination,required"`
	PluginDir               string `env:"plugin_dir,required"`

	// Runner Configs
	FbsimctlURL        string `env:"FBSIMCTL_URL,required"`
	FbxctestURL        string `env:"FBXCTEST_URL,required"`
	EnvironmentJSON    string `env:"environment_json"`
	TestDestinations   string `env:"test_destinations,required"`
	NumberOfSimulators int    `env:"number_of_simulators,required"`
	NumberOfRetries    int    `env:"number_of_retries"`
	SingleTestTimeout  int    `env:"single_test_timeout,required"`
	RunnerTimeout      int    `env:"runner_timeout"`

	// Verification
	EventLogPath           string `env:"event_log_path,required"`
	DestinationJUnitPath   string `env:"destination_junit_path"`
	ExpectationsPath       string `env:"expectations_path"`
	WorkingDirectoryEnvKey string `env:"working_directory_env_key"`

	// Fixture Cache
	CacheStore               string `env:"cache_store,opt[memory,file,badger]"`
	CacheDir                 string `env:"cache_dir"`
	KeepTempDirs             bool   `env:"keep_temp_dirs,opt[yes,no]"`
	RevalidateCachedFixtures bool   `env:"revalidate_cached_fixtures,opt[yes,no]"`

	// Debug
	Verbose bool `env:"verbose,opt[yes,no]"`

	// Output export
	DeployDir string `env:"BITRISE_DEPLOY_DIR"`
}

// Config ...
type Config struct {
	Runner fixture.RunnerParams
	App    fixture.IosAppParams
	Plugin fixture.PluginParams
	// Run holds the runner configuration, the fixture fields are filled in once they are built.
	Run fixture.RunParams

	// DestinationJUnitPath is relative to the runner's current directory, empty means the first destination's report.
	DestinationJUnitPath   string
	Expectation            verifier.Expectation
	WorkingDirectoryEnvKey string

	CacheStore     fixturecache.StoreKind
	CacheDir       string
	FixtureOptions fixture.Options
	DeployDir      string
	TestBundleName string
}

// SmokeTestConfigParser ...
type SmokeTestConfigParser struct {
	inputParser  stepconf.InputParser
	logger       log.Logger
	pathModifier pathutil.PathModifier
}

// NewSmokeTestConfigParser ...
func NewSmokeTestConfigParser(inputParser stepconf.InputParser, logger log.Logger, pathModifier pathutil.PathModifier) SmokeTestConfigParser {
	return SmokeTestConfigParser{
		inputParser:  inputParser,
		logger:       logger,
		pathModifier: pathModifier,
	}
}

// ProcessConfig ...
func (p SmokeTestConfigParser) ProcessConfig() (Config, error) {
	var input Input
	err := p.inputParser.Parse(&input)
	if err != nil {
		return Config{}, err
	}

	stepconf.Print(input)
	p.logger.Println()

	p.logger.EnableDebugLog(input.Verbose)

	if input.NumberOfSimulators < 1 {
		return Config{}, fmt.Errorf("invalid Number of Simulators (number_of_simulators): %d, should be at least 1", input.NumberOfSimulators)
	}
	if input.NumberOfRetries < 0 {
		return Config{}, fmt.Errorf("invalid Number of Retries (number_of_retries): %d, should not be negative", input.NumberOfRetries)
	}
	if input.SingleTestTimeout < 1 {
		return Config{}, fmt.Errorf("invalid Single Test Timeout (single_test_timeout): %d, should be at least 1 second", input.SingleTestTimeout)
	}
	if input.RunnerTimeout < 0 {
		return Config{}, fmt.Errorf("invalid Runner Timeout (runner_timeout): %d, should not be negative", input.RunnerTimeout)
	}

	runnerPackageDir, err := p.absPath("runner_package_dir", input.RunnerPackageDir)
	if err != nil {
		return Config{}, err
	}
	projectDir, err := p.absPath("test_app_project_dir", input.TestAppProjectDir)
	if err != nil {
		return Config{}, err
	}
	pluginDir, err := p.absPath("plugin_dir", input.PluginDir)
	if err != nil {
		return Config{}, err
	}

	destinationFiles, err := p.destinationFiles(input.TestDestinations)
	if err != nil {
		return Config{}, err
	}

	environment, err := p.environment(input.EnvironmentJSON)
	if err != nil {
		return Config{}, err
	}

	expectation := verifier.DefaultExpectation()
	if input.ExpectationsPath != "" {
		expectationsPath, err := p.absPath("expectations_path", input.ExpectationsPath)
		if err != nil {
			return Config{}, err
		}
		if expectation, err = verifier.LoadExpectation(expectationsPath); err != nil {
			return Config{}, fmt.Errorf("failed to load expectations: %w", err)
		}
	}

	storeKind, cacheDir, err := p.cacheStore(input.CacheStore, input.CacheDir)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Runner: fixture.RunnerParams{
			PackageDir: runnerPackageDir,
			Product:    input.RunnerProduct,
		},
		App: fixture.IosAppParams{
			ProjectDir:  projectDir,
			Scheme:      input.TestAppScheme,
			Destination: input.TestAppBuildDestination,
		},
		Plugin: fixture.PluginParams{
			Dir: pluginDir,
		},
		Run: fixture.RunParams{
			FbsimctlURL:        input.FbsimctlURL,
			FbxctestURL:        input.FbxctestURL,
			Environment:        environment,
			DestinationFiles:   destinationFiles,
			NumberOfSimulators: input.NumberOfSimulators,
			NumberOfRetries:    input.NumberOfRetries,
			SingleTestTimeout:  input.SingleTestTimeout,
			EventLogPath:       input.EventLogPath,
			Timeout:            time.Duration(input.RunnerTimeout) * time.Second,
		},

		DestinationJUnitPath:   input.DestinationJUnitPath,
		Expectation:            expectation,
		WorkingDirectoryEnvKey: input.WorkingDirectoryEnvKey,

		CacheStore: storeKind,
		CacheDir:   cacheDir,
		FixtureOptions: fixture.Options{
			KeepDirectories: input.KeepTempDirs,
			PersistentStore: storeKind != fixturecache.MemoryStoreKind && cacheDir != "",
			Revalidate:      input.RevalidateCachedFixtures,
		},
		DeployDir:      input.DeployDir,
		TestBundleName: input.TestAppScheme,
	}, nil
}

func (p SmokeTestConfigParser) absPath(inputKey, pth string) (string, error) {
	absPth, err := p.pathModifier.AbsPath(pth)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path of %s (%s): %w", inputKey, pth, err)
	}
	return absPth, nil
}

func (p SmokeTestConfigParser) destinationFiles(value string) ([]string, error) {
	var files []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		pth, err := p.absPath("test_destinations", line)
		if err != nil {
			return nil, err
		}
		files = append(files, pth)
	}

	if len(files) == 0 {
		return nil, errors.New("no Test Destinations (test_destinations) provided")
	}
	return files, nil
}

func (p SmokeTestConfigParser) environment(pth string) (map[string]string, error) {
	if pth == "" {
		return map[string]string{}, nil
	}

	absPth, err := p.absPath("environment_json", pth)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(absPth)
	if err != nil {
		return nil, fmt.Errorf("failed to read test environment: %w", err)
	}

	var environment map[string]string
	if err := json.Unmarshal(content, &environment); err != nil {
		return nil, fmt.Errorf("failed to parse test environment (%s), should be a JSON object of strings: %w", absPth, err)
	}
	if environment == nil {
		environment = map[string]string{}
	}

	p.logger.Debugf("Test environment: %v", environment)

	return environment, nil
}

func (p SmokeTestConfigParser) cacheStore(store, dir string) (fixturecache.StoreKind, string, error) {
	kind := fixturecache.StoreKind(store)
	if kind == "" {
		kind = fixturecache.MemoryStoreKind
	}

	switch kind {
	case fixturecache.MemoryStoreKind:
		if dir != "" {
			p.logger.Warnf("Cache Directory (cache_dir) is ignored with the memory cache store")
		}
		return kind, "", nil
	case fixturecache.FileStoreKind:
		if dir == "" {
			return "", "", errors.New("Cache Directory (cache_dir) is required with the file cache store")
		}
	case fixturecache.BadgerStoreKind:
		if dir == "" {
			p.logger.Warnf("No Cache Directory (cache_dir) provided, the badger cache store is kept in memory")
			return kind, "", nil
		}
	}

	absDir, err := p.absPath("cache_dir", dir)
	if err != nil {
		return "", "", err
	}
	return kind, absDir, nil
}
