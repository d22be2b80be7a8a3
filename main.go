package main

import (
	"context"
	"os"

	"github.com/bitrise-io/go-steputils/v2/export"
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-steputils/v2/stepenv"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-xcode/v2/xcodeversion"
	"github.com/bitrise-steplib/steps-runner-smoke-test/directory"
	"github.com/bitrise-steplib/steps-runner-smoke-test/fixture"
	"github.com/bitrise-steplib/steps-runner-smoke-test/fixturecache"
	"github.com/bitrise-steplib/steps-runner-smoke-test/output"
	"github.com/bitrise-steplib/steps-runner-smoke-test/process"
	"github.com/bitrise-steplib/steps-runner-smoke-test/report"
	"github.com/bitrise-steplib/steps-runner-smoke-test/step"
	"github.com/bitrise-steplib/steps-runner-smoke-test/testaddon"
	"github.com/bitrise-steplib/steps-runner-smoke-test/testargfile"
	"github.com/bitrise-steplib/steps-runner-smoke-test/verifier"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()
	envRepository := stepenv.NewRepository(env.NewRepository())
	commandFactory := command.NewFactory(env.NewRepository())
	fileManager := fileutil.NewFileManager()
	pathChecker := pathutil.NewPathChecker()

	configParser := step.NewSmokeTestConfigParser(stepconf.NewInputParser(envRepository), logger, pathutil.NewPathModifier())
	config, err := configParser.ProcessConfig()
	if err != nil {
		logger.Errorf("Process config: %s", err)
		return 1
	}

	xcodeVersion, err := xcodeversion.NewXcodeVersionProvider(commandFactory).GetVersion()
	if err != nil {
		logger.Errorf("Failed to read Xcode version: %s", err)
		return 1
	}
	logger.Infof("Xcode version: %s (%s)", xcodeVersion.Version, xcodeVersion.BuildVersion)

	store, err := fixturecache.OpenStore(config.CacheStore, config.CacheDir, logger)
	if err != nil {
		logger.Errorf("Failed to open fixture cache: %s", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("Failed to close fixture cache: %s", err)
		}
	}()

	provider := fixture.NewProvider(
		logger,
		fixturecache.New(store, logger),
		process.NewInvoker(logger),
		directory.NewFactory(pathutil.NewPathProvider(), fileManager, logger),
		pathChecker,
		fileManager,
		testargfile.NewWriter(fileManager, logger),
		xcodeVersion,
		config.FixtureOptions,
	)
	defer provider.Close()

	outputExporter := export.NewExporter(commandFactory)
	exporter := output.NewExporter(
		envRepository,
		logger,
		fileManager,
		&outputExporter,
		testaddon.NewExporter(testaddon.NewTestAddon(commandFactory, fileManager, logger)),
	)

	runner := step.NewSmokeTestRunner(
		logger,
		provider,
		report.NewReader(pathChecker, logger),
		verifier.NewVerifier(logger, config.WorkingDirectoryEnvKey),
		exporter,
		step.NewUtils(logger),
	)

	result, runErr := runner.Run(context.Background(), config)
	if runErr != nil {
		logger.Println()
		logger.Errorf("Smoke test failed: %s", runErr)
	}

	if err := runner.Export(config, result, runErr != nil); err != nil {
		logger.Println()
		logger.Errorf("Export outputs: %s", err)
		return 1
	}

	if runErr != nil {
		return 1
	}

	logger.Println()
	logger.Donef("Smoke test passed")
	return 0
}
