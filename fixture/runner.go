package fixture

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/bitrise-steplib/steps-runner-smoke-test/process"
)

// RunnerParams ...
type RunnerParams struct {
	PackageDir string `json:"package_dir"`
	Product    string `json:"product"`
}

// Runner builds the runner executable from its Swift package.
func (p *provider) Runner(ctx context.Context, params RunnerParams) (Executable, error) {
	key, err := cacheKey(runnerKey, params)
	if err != nil {
		return Executable{}, err
	}

	return get(p, key, p.runnerProducer(ctx, params), func(e Executable) []string {
		return []string{e.Path}
	})
}

func (p *provider) runnerProducer(ctx context.Context, params RunnerParams) iter.Seq2[Executable, error] {
	return func(yield func(Executable, error) bool) {
		p.logger.Println()
		p.logger.Infof("Building %s", params.Product)

		build := process.ArgvCommand("swift", "build", "--product", params.Product)
		build.Dir = params.PackageDir
		if _, err := p.invoker.Run(ctx, build); err != nil {
			yield(Executable{}, fmt.Errorf("failed to build %s: %w", params.Product, err))
			return
		}

		binPath := process.ArgvCommand("swift", "build", "--product", params.Product, "--show-bin-path")
		binPath.Dir = params.PackageDir
		out, err := p.invoker.Run(ctx, binPath)
		if err != nil {
			yield(Executable{}, fmt.Errorf("failed to locate %s: %w", params.Product, err))
			return
		}

		executable := Executable{Path: filepath.Join(strings.TrimSpace(out.Stdout), params.Product)}
		p.logger.Donef("%s built: %s", params.Product, executable.Path)

		yield(executable, nil)
	}
}
