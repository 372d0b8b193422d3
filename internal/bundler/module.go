package bundler

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/zeebo/blake3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// module is one cached entry of the bundle state.
type module struct {
	hash     [32]byte
	compiled string
	// deps maps each require specifier to the resolved module ID.
	deps map[string]string
}

func hashSource(src []byte) [32]byte {
	return blake3.Sum256(src)
}

// compileModule substitutes placeholders, parses the module with esbuild and
// resolves its requires.
func compileModule(id string, src []byte, subst *strings.Replacer, res resolver) (*module, error) {
	code := subst.Replace(string(src))
	loader := loaderFor(id)

	out := api.Transform(code, api.TransformOptions{
		Loader:     loader,
		Sourcefile: id,
		LogLevel:   api.LogLevelSilent,
	})
	if len(out.Errors) > 0 {
		return nil, messageError(id, out.Errors)
	}

	m := &module{
		hash:     hashSource(src),
		compiled: strings.TrimRight(string(out.Code), "\n"),
		deps:     make(map[string]string),
	}
	if loader == api.LoaderJSON {
		return m, nil
	}

	specs, err := requireCalls(id, code)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if _, done := m.deps[spec]; done {
			continue
		}
		target, ok := res.resolve(id, spec)
		if !ok {
			return nil, ferrors.CompileError("cannot resolve module").
				WithContext("module", id).
				WithContext("specifier", spec).
				Build()
		}
		m.deps[spec] = target
	}
	return m, nil
}

func loaderFor(id string) api.Loader {
	if strings.EqualFold(path.Ext(id), ".json") {
		return api.LoaderJSON
	}
	return api.LoaderJS
}

// requireCalls returns the string specifiers of the require calls in code,
// as esbuild's parser reports them to the resolve hook. Every one is marked
// external so nothing is read from disk.
func requireCalls(id, code string) ([]string, error) {
	var (
		mu    sync.Mutex
		specs []string
	)
	collect := api.Plugin{
		Name: "require-calls",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind == api.ResolveJSRequireCall && args.Path != "" {
					mu.Lock()
					specs = append(specs, args.Path)
					mu.Unlock()
				}
				return api.OnResolveResult{Path: args.Path, External: true}, nil
			})
		},
	}

	out := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   code,
			Sourcefile: id,
			Loader:     api.LoaderJS,
		},
		Bundle:   true,
		Write:    false,
		LogLevel: api.LogLevelSilent,
		Plugins:  []api.Plugin{collect},
	})
	if len(out.Errors) > 0 {
		return nil, messageError(id, out.Errors)
	}
	return specs, nil
}

// depIDs returns the distinct resolved dependencies, sorted.
func (m *module) depIDs() []string {
	seen := make(map[string]bool, len(m.deps))
	ids := make([]string, 0, len(m.deps))
	for _, id := range m.deps {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func messageError(id string, msgs []api.Message) error {
	first := msgs[0]
	b := ferrors.WrapError(errors.New(formatMessage(first)), ferrors.CategoryCompile, "compile module").
		UserAction().
		WithContext("module", id).
		WithContext("errors", len(msgs))
	if loc := first.Location; loc != nil {
		b = b.WithContext("line", loc.Line).WithContext("column", loc.Column)
	}
	return b.Build()
}

func formatMessage(msg api.Message) string {
	if loc := msg.Location; loc != nil {
		return fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column, msg.Text)
	}
	return msg.Text
}
