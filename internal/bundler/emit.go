package bundler

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

const prelude = `(function (modules, entry) {
  var cache = {};
  function load(id) {
    if (cache[id]) return cache[id].exports;
    var def = modules[id];
    var module = cache[id] = { exports: {} };
    def[0].call(module.exports, function (spec) {
      var dep = def[1][spec];
      if (dep === undefined) throw new Error("Cannot find module '" + spec + "' from '" + id + "'");
      return load(dep);
    }, module, module.exports);
    return module.exports;
  }
  load(entry);
})({
`

// emit assembles the artifact from modules sorted by ID. The output depends
// only on the module contents, the entry and the debug flag.
func emit(entry string, modules map[string]*module, debug bool) ([]byte, error) {
	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	sb.WriteString(prelude)
	for i, id := range ids {
		m := modules[id]
		if debug {
			sb.WriteString("// " + id + "\n")
		}
		sb.WriteString(quote(id))
		sb.WriteString(": [function (require, module, exports) {\n")
		sb.WriteString(m.compiled)
		sb.WriteString("\n}, ")
		sb.WriteString(depsLiteral(m.deps))
		sb.WriteString("]")
		if i < len(ids)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}, ")
	sb.WriteString(quote(entry))
	sb.WriteString(");\n")

	if debug {
		return []byte(sb.String()), nil
	}

	out := api.Transform(sb.String(), api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        "bundle.js",
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(out.Errors) > 0 {
		return nil, ferrors.WrapError(messageError("bundle.js", out.Errors), ferrors.CategoryCompile, "minify bundle").Build()
	}
	return out.Code, nil
}

func depsLiteral(deps map[string]string) string {
	// encoding/json sorts map keys, which keeps the literal stable.
	b, _ := json.Marshal(deps)
	return string(b)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
