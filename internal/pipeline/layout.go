package pipeline

import (
	"path"

	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
)

// Output names inside the output directory.
const (
	StylesheetArtifact = "css/bundle.css"
	ThirdPartyLicense  = "3rd-party-LICENSE.txt"
	FontsDir           = "fonts"
	CSSDir             = "css"
	ImagesDir          = "img"
)

// Layout holds the project's file sets. Patterns are relative to the
// project root and rooted at the configured source directory.
type Layout struct {
	Scripts           *fileset.FileSet // own scripts, linted and watched for the bundler
	AppStylesheet     *fileset.FileSet // own stylesheet, linted
	Stylesheets       *fileset.FileSet // concatenated into css/bundle.css, in order
	HTML              *fileset.FileSet
	Images            *fileset.FileSet
	BootstrapFonts    *fileset.FileSet
	UIGridFonts       *fileset.FileSet
	License           *fileset.FileSet
	ThirdPartyLicense *fileset.FileSet
	CNAME             *fileset.FileSet
}

// NewLayout builds the file sets for sourceDir.
func NewLayout(sourceDir string) (*Layout, error) {
	src := func(p string) string { return path.Join(sourceDir, p) }
	not := func(p string) string { return "!" + src(p) }
	bower := func(p string) string { return src(path.Join("bower_components", p)) }

	l := &Layout{}
	defs := []struct {
		dst      **fileset.FileSet
		name     string
		patterns []string
	}{
		{&l.Scripts, "scripts", []string{src("**/*.js"), not("bower_components/**"), not("**/*test.js"), not("**/e2e-tests/**")}},
		{&l.AppStylesheet, "app-css", []string{src("app.css")}},
		{&l.Stylesheets, "css", []string{
			bower("html5-boilerplate/dist/css/normalize.css"),
			bower("html5-boilerplate/dist/css/main.css"),
			bower("bootstrap/dist/css/bootstrap.css"),
			bower("angular-ui-grid/ui-grid.css"),
			bower("dangle/css/dangle.css"),
			src("ui-grid-sky-theme.css"),
			src("app.css"),
		}},
		{&l.HTML, "html", []string{src("**/*.html"), not("e2e-tests/**"), not("bower_components/**")}},
		{&l.Images, "img", []string{src("img/**")}},
		{&l.BootstrapFonts, "bootstrap-font", []string{bower("bootstrap/dist/fonts/*")}},
		{&l.UIGridFonts, "ui-grid-font", []string{
			bower("angular-ui-grid/ui-grid.eot"),
			bower("angular-ui-grid/ui-grid.svg"),
			bower("angular-ui-grid/ui-grid.ttf"),
			bower("angular-ui-grid/ui-grid.woff"),
		}},
		{&l.License, "license", []string{src("LICENSE.txt")}},
		{&l.ThirdPartyLicense, "third-party-license", []string{bower("**/*LICENSE*")}},
		{&l.CNAME, "cname", []string{src("CNAME")}},
	}
	for _, d := range defs {
		set, err := fileset.New(d.name, d.patterns...)
		if err != nil {
			return nil, err
		}
		*d.dst = set
	}
	l.HTML = l.HTML.WithBase(sourceDir)
	return l, nil
}
