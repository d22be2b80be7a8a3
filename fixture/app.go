package fixture

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-xcode/v2/errorfinder"
	"github.com/bitrise-steplib/steps-runner-smoke-test/process"
)

const productsDir = "Build/Products/Debug-iphonesimulator"

var xcodeCommandEnvs = []string{"NSUnbufferedIO=YES"}

// IosAppParams ...
type IosAppParams struct {
	ProjectDir  string `json:"project_dir"`
	Scheme      string `json:"scheme"`
	Destination string `json:"destination"`
	// XcodeBuildVersion is part of the cache key only, products of a different Xcode are rebuilt.
	XcodeBuildVersion string `json:"xcode_build_version"`
}

// IosApp builds the test app and its UI test runner for testing.
func (p *provider) IosApp(ctx context.Context, params IosAppParams) (IosApp, error) {
	params.XcodeBuildVersion = p.xcodeVersion.BuildVersion

	key, err := cacheKey(appKey, params)
	if err != nil {
		return IosApp{}, err
	}

	return get(p, key, p.iosAppProducer(ctx, params), func(app IosApp) []string {
		return []string{app.AppPath, app.UITestsRunnerPath, app.XcTestBundlePath}
	})
}

func (p *provider) iosAppProducer(ctx context.Context, params IosAppParams) iter.Seq2[IosApp, error] {
	return func(yield func(IosApp, error) bool) {
		p.logger.Println()
		p.logger.Infof("Building %s for testing (Xcode %s)", params.Scheme, p.xcodeVersion.Version)

		tmpDir, err := p.temporaryDirectory("smoke_tests_app")
		if err != nil {
			yield(IosApp{}, err)
			return
		}
		derivedData, err := tmpDir.SubDirectory("DerivedData")
		if err != nil {
			yield(IosApp{}, err)
			return
		}

		build := process.ArgvCommand("xcodebuild", "build-for-testing",
			"-scheme", params.Scheme,
			"-derivedDataPath", derivedData.Root(),
			"-destination", params.Destination,
		)
		build.Dir = params.ProjectDir
		build.Env = xcodeCommandEnvs
		build.ErrorFinder = errorfinder.FindXcodebuildErrors

		out, err := p.invoker.Run(ctx, build)
		logPath := derivedData.Path("xcodebuild.log.ignored")
		if writeErr := p.fileManager.Write(logPath, out.Stdout+out.Stderr, 0644); writeErr != nil {
			p.logger.Warnf("Failed to save xcodebuild log: %s", writeErr)
		} else {
			p.logger.Printf("xcodebuild log: %s", logPath)
		}
		if err != nil {
			yield(IosApp{}, fmt.Errorf("failed to build %s for testing: %w", params.Scheme, err))
			return
		}

		// Some Xcode versions put Build and Index next to the project instead of into the derived data.
		for _, name := range []string{"Build", "Index"} {
			if err := p.moveIntoDerivedData(filepath.Join(params.ProjectDir, name), derivedData.Path(name)); err != nil {
				yield(IosApp{}, err)
				return
			}
		}

		products := derivedData.Path(productsDir)
		uiTestsTarget := params.Scheme + "UITests"
		runnerPath := filepath.Join(products, uiTestsTarget+"-Runner.app")
		app := IosApp{
			AppPath:           filepath.Join(products, params.Scheme+".app"),
			UITestsRunnerPath: runnerPath,
			XcTestBundlePath:  filepath.Join(runnerPath, "PlugIns", uiTestsTarget+".xctest"),
			DerivedDataPath:   derivedData.Root(),
		}
		p.logger.Donef("%s built: %s", params.Scheme, app.AppPath)

		yield(app, nil)
	}
}

func (p *provider) moveIntoDerivedData(source, destination string) error {
	exists, err := p.pathChecker.IsDirExists(source)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", source, err)
	}
	if !exists {
		return nil
	}

	p.logger.Warnf("Unexpectedly found %s next to the project, moving it to %s", source, destination)
	if err := os.Rename(source, destination); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", source, destination, err)
	}
	return nil
}
