package fixture

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"

	"github.com/bitrise-steplib/steps-runner-smoke-test/process"
)

const pluginBundlePattern = ".build/debug/*.emceeplugin"

// PluginParams ...
type PluginParams struct {
	Dir string `json:"dir"`
}

// Plugin builds the event logging runner plugin with its Makefile.
func (p *provider) Plugin(ctx context.Context, params PluginParams) (Plugin, error) {
	key, err := cacheKey(pluginKey, params)
	if err != nil {
		return Plugin{}, err
	}

	return get(p, key, p.pluginProducer(ctx, params), func(plugin Plugin) []string {
		return []string{plugin.Path}
	})
}

func (p *provider) pluginProducer(ctx context.Context, params PluginParams) iter.Seq2[Plugin, error] {
	return func(yield func(Plugin, error) bool) {
		p.logger.Println()
		p.logger.Infof("Building plugin: %s", params.Dir)

		build := process.ArgvCommand("make", "build")
		build.Dir = params.Dir
		if _, err := p.invoker.Run(ctx, build); err != nil {
			yield(Plugin{}, fmt.Errorf("failed to build plugin: %w", err))
			return
		}

		matches, err := filepath.Glob(filepath.Join(params.Dir, pluginBundlePattern))
		if err != nil {
			yield(Plugin{}, err)
			return
		}
		if len(matches) != 1 {
			yield(Plugin{}, fmt.Errorf("expected exactly one plugin bundle (%s) in %s, found: %v", pluginBundlePattern, params.Dir, matches))
			return
		}

		plugin := Plugin{Path: matches[0]}
		p.logger.Donef("Plugin built: %s", plugin.Path)

		yield(plugin, nil)
	}
}
