package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Engines is the minimum browser matrix scripts are lowered to.
var Engines = []api.Engine{
	{Name: api.EngineChrome, Version: "89"},
	{Name: api.EngineFirefox, Version: "89"},
	{Name: api.EngineSafari, Version: "15"},
	{Name: api.EngineEdge, Version: "89"},
}

// BundleJS bundles the script at path with its imports and minifies it.
func BundleJS(path string) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{path},
		Bundle:            true,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Engines:           Engines,
		LogLevel:          api.LogLevelSilent,
		Write:             false,
	})

	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%s:%d: %s", m.Location.File, m.Location.Line, m.Text))
				continue
			}
			msgs = append(msgs, m.Text)
		}
		return nil, fmt.Errorf("bundle %s: %s", path, strings.Join(msgs, "; "))
	}
	if len(result.OutputFiles) == 0 {
		return nil, errors.New("bundle " + path + ": no output file")
	}
	return result.OutputFiles[0].Contents, nil
}
