// Package fileset implements named, ordered glob pattern lists. A leading
// "!" marks an exclude pattern. Patterns use forward slashes and are
// relative to the project root.
package fileset

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

const metaChars = "*?[{"

// FileSet is an immutable named pattern list.
type FileSet struct {
	Name     string
	Patterns []string
	// Base, when set, replaces the glob parent as the root for File.Rel.
	Base string

	includes []pattern
	excludes []pattern
}

type pattern struct {
	raw     string
	parent  string
	literal bool
	globs   []glob.Glob
}

// File is one expanded match.
type File struct {
	Path string // absolute filesystem path
	Name string // slash path relative to the project root
	Rel  string // slash path relative to the glob parent or Base
}

// New compiles patterns. An invalid pattern is a configuration error.
func New(name string, patterns ...string) (*FileSet, error) {
	fsSet := &FileSet{Name: name, Patterns: slices.Clone(patterns)}
	for _, raw := range patterns {
		exclude := strings.HasPrefix(raw, "!")
		p, err := compile(strings.TrimPrefix(raw, "!"))
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid file set pattern").
				Fatal().
				WithContext("fileset", name).
				WithContext("pattern", raw).
				Build()
		}
		if exclude {
			fsSet.excludes = append(fsSet.excludes, p)
		} else {
			fsSet.includes = append(fsSet.includes, p)
		}
	}
	return fsSet, nil
}

// MustNew is New for package-level definitions with known-good patterns.
func MustNew(name string, patterns ...string) *FileSet {
	s, err := New(name, patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

// WithBase returns a copy whose File.Rel values are relative to base.
func (s *FileSet) WithBase(base string) *FileSet {
	c := *s
	c.Base = path.Clean(base)
	return &c
}

func compile(p string) (pattern, error) {
	p = path.Clean(p)
	out := pattern{raw: p, parent: globParent(p), literal: !strings.ContainsAny(p, metaChars)}
	if out.literal {
		return out, nil
	}
	for _, variant := range doubleStarVariants(p) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return pattern{}, err
		}
		out.globs = append(out.globs, g)
	}
	return out, nil
}

// doubleStarVariants lets "**" match zero directories: "a/**/b" also
// yields "a/b", "**/b" also yields "b".
func doubleStarVariants(p string) []string {
	variants := []string{p}
	for i := 0; i < len(variants); i++ {
		v := variants[i]
		var next []string
		if strings.HasPrefix(v, "**/") {
			next = append(next, strings.TrimPrefix(v, "**/"))
		}
		if idx := strings.Index(v, "/**/"); idx >= 0 {
			next = append(next, v[:idx]+"/"+v[idx+len("/**/"):])
		}
		for _, n := range next {
			if !slices.Contains(variants, n) {
				variants = append(variants, n)
			}
		}
	}
	return variants
}

// globParent returns the leading directory segments free of glob
// metacharacters. For a literal path it is the containing directory.
func globParent(p string) string {
	if !strings.ContainsAny(p, metaChars) {
		return path.Dir(p)
	}
	segments := strings.Split(p, "/")
	var parent []string
	for _, seg := range segments[:len(segments)-1] {
		if strings.ContainsAny(seg, metaChars) {
			break
		}
		parent = append(parent, seg)
	}
	if len(parent) == 0 {
		return "."
	}
	return strings.Join(parent, "/")
}

func (p pattern) match(name string) bool {
	if p.literal {
		return name == p.raw
	}
	for _, g := range p.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Match reports whether the root-relative slash path belongs to the set.
func (s *FileSet) Match(name string) bool {
	name = path.Clean(filepath.ToSlash(name))
	if s.excluded(name) {
		return false
	}
	for _, p := range s.includes {
		if p.match(name) {
			return true
		}
	}
	return false
}

func (s *FileSet) excluded(name string) bool {
	for _, p := range s.excludes {
		if p.match(name) {
			return true
		}
	}
	return false
}

// Expand resolves the set against root. Results follow pattern order, are
// sorted within a pattern and de-duplicated across patterns. A literal
// pattern naming a missing file is a task error.
func (s *FileSet) Expand(root string) ([]File, error) {
	var files []File
	seen := make(map[string]bool)

	for _, p := range s.includes {
		var names []string
		if p.literal {
			info, err := os.Stat(filepath.Join(root, filepath.FromSlash(p.raw)))
			if err != nil || info.IsDir() {
				return nil, foundationerrors.TaskError("file not found").
					WithContext("fileset", s.Name).
					WithContext("path", p.raw).
					Build()
			}
			if !s.excluded(p.raw) {
				names = append(names, p.raw)
			}
		} else {
			matched, err := s.walk(root, p)
			if err != nil {
				return nil, err
			}
			names = matched
		}

		slices.Sort(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			files = append(files, File{
				Path: filepath.Join(root, filepath.FromSlash(name)),
				Name: name,
				Rel:  s.rel(p, name),
			})
		}
	}
	return files, nil
}

func (s *FileSet) walk(root string, p pattern) ([]string, error) {
	start := filepath.Join(root, filepath.FromSlash(p.parent))
	if _, err := os.Stat(start); os.IsNotExist(err) {
		return nil, nil
	}

	var names []string
	err := filepath.WalkDir(start, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			// "dir/**" excludes prune the whole subtree.
			if name != "." && s.excluded(name+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if p.match(name) && !s.excluded(name) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "expand file set").
			WithContext("fileset", s.Name).
			Build()
	}
	return names, nil
}

func (s *FileSet) rel(p pattern, name string) string {
	base := p.parent
	if s.Base != "" {
		base = s.Base
	}
	if base == "." {
		return name
	}
	if r, ok := strings.CutPrefix(name, base+"/"); ok {
		return r
	}
	return path.Base(name)
}
