package bundler

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// resolver maps require specifiers to module IDs (slash paths relative to root).
type resolver struct {
	root string
}

// resolve returns the module ID for spec required from module from.
// Relative specifiers try x, x.js, x.json and x/index.js. Bare specifiers
// are looked up in node_modules directories from the requiring module up to
// the root.
func (r resolver) resolve(from, spec string) (string, bool) {
	if isRelative(spec) {
		var base string
		if strings.HasPrefix(spec, "/") {
			base = path.Clean(strings.TrimPrefix(spec, "/"))
		} else {
			base = path.Join(path.Dir(from), spec)
		}
		if strings.HasPrefix(base, "../") || base == ".." {
			return "", false
		}
		return r.file(base)
	}

	name, sub := splitPackage(spec)
	for dir := path.Dir(from); ; dir = path.Dir(dir) {
		pkgDir := path.Join(dir, "node_modules", name)
		if sub != "" {
			if id, ok := r.file(path.Join(pkgDir, sub)); ok {
				return id, true
			}
		} else if id, ok := r.pkg(pkgDir); ok {
			return id, true
		}
		if dir == "." || dir == "/" {
			return "", false
		}
	}
}

func (r resolver) pkg(dir string) (string, bool) {
	if !r.isDir(dir) {
		return "", false
	}
	if data, err := os.ReadFile(r.abs(path.Join(dir, "package.json"))); err == nil {
		var manifest struct {
			Main string `json:"main"`
		}
		if json.Unmarshal(data, &manifest) == nil && manifest.Main != "" {
			if id, ok := r.file(path.Join(dir, manifest.Main)); ok {
				return id, true
			}
		}
	}
	return r.file(path.Join(dir, "index.js"))
}

func (r resolver) file(base string) (string, bool) {
	for _, candidate := range []string{base, base + ".js", base + ".json", path.Join(base, "index.js")} {
		if r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r resolver) abs(id string) string {
	return filepath.Join(r.root, filepath.FromSlash(id))
}

func (r resolver) isFile(id string) bool {
	info, err := os.Stat(r.abs(id))
	return err == nil && info.Mode().IsRegular()
}

func (r resolver) isDir(id string) bool {
	info, err := os.Stat(r.abs(id))
	return err == nil && info.IsDir()
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/") || spec == "." || spec == ".."
}

// splitPackage splits "pkg/sub/file" into ("pkg", "sub/file"), keeping
// scoped names ("@scope/pkg") together.
func splitPackage(spec string) (string, string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		name := parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			return name, parts[2]
		}
		return name, ""
	}
	name, sub, _ := strings.Cut(spec, "/")
	return name, sub
}
