package pipeline

import (
	"context"

	"git.home.luguber.info/inful/assetbuilder/internal/assets"
	"git.home.luguber.info/inful/assetbuilder/internal/bundler"
	"git.home.luguber.info/inful/assetbuilder/internal/lint"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// Task names.
const (
	TaskJSHint        = "jshint"
	TaskCSSLint       = "csslint"
	TaskLint          = "lint"
	TaskImages        = "img"
	TaskCSS           = "css"
	TaskHTML          = "html"
	TaskBootstrapFont = "bootstrap-font"
	TaskUIGridFont    = "ui-grid-font"
	TaskFont          = "font"
	TaskLicense       = "license"
	TaskAssets        = "assets"
	TaskBundle        = "bundle"
	TaskCNAME         = "cname"
	TaskBuilding      = "building"
	TaskBuild         = "build"
)

// RegisterTasks declares the task graph: lint, then the asset tasks, then
// the bundle. build adds cname; building is the watch-mode warm-up.
func RegisterTasks(reg *taskgraph.Registry, r *assets.Runner, b *bundler.Bundler, l *Layout) error {
	linter := lint.NewLinter(nil)
	lintFirst := []string{TaskLint}

	tasks := []taskgraph.Task{
		{Name: TaskJSHint, Description: "Lint scripts", Action: r.Lint(TaskJSHint, l.Scripts, linter)},
		{Name: TaskCSSLint, Description: "Lint the app stylesheet", Action: r.Lint(TaskCSSLint, l.AppStylesheet, linter)},
		{Name: TaskLint, Deps: []string{TaskJSHint, TaskCSSLint}, Description: "All static checks"},

		{Name: TaskImages, Deps: lintFirst, Description: "Copy and optimize images", Action: r.Images(l.Images, ImagesDir)},
		{Name: TaskCSS, Deps: lintFirst, Description: "Concatenate and minify stylesheets", Action: r.Stylesheet(l.Stylesheets, StylesheetArtifact)},
		{Name: TaskHTML, Deps: lintFirst, Description: "Copy markup", Action: r.Copy(l.HTML, "")},
		{Name: TaskBootstrapFont, Deps: lintFirst, Description: "Copy bootstrap fonts", Action: r.Copy(l.BootstrapFonts, FontsDir)},
		{Name: TaskUIGridFont, Deps: lintFirst, Description: "Copy ui-grid fonts beside the stylesheet", Action: r.Copy(l.UIGridFonts, CSSDir)},
		{Name: TaskFont, Deps: []string{TaskBootstrapFont, TaskUIGridFont}, Description: "All fonts"},
		{Name: TaskLicense, Deps: lintFirst, Description: "Collect license files", Action: assets.Sequence(
			r.Concat(l.ThirdPartyLicense, ThirdPartyLicense),
			r.Copy(l.License, ""),
		)},
		{Name: TaskAssets, Deps: []string{TaskImages, TaskCSS, TaskHTML, TaskFont, TaskLicense}, Description: "All static assets"},

		{Name: TaskBundle, Deps: []string{TaskAssets}, Description: "Bundle scripts", Action: bundleAction(b)},
		{Name: TaskCNAME, Deps: lintFirst, Description: "Copy CNAME", Action: r.Copy(l.CNAME, "")},
		{Name: TaskBuilding, Deps: []string{TaskBundle}, Description: "Build for watch mode"},
		{Name: TaskBuild, Deps: []string{TaskBundle, TaskCNAME}, Description: "One-shot build"},
	}
	for _, t := range tasks {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return reg.Validate()
}

func bundleAction(b *bundler.Bundler) taskgraph.Action {
	return func(ctx context.Context) (taskgraph.Effect, error) {
		if _, err := b.Bundle(ctx); err != nil {
			return taskgraph.Effect{}, err
		}
		return taskgraph.Effect{Written: []string{bundler.DefaultArtifact}}, nil
	}
}

// Subscriptions maps watched file sets to the tasks that resync them.
// Scripts are not listed; they go to the bundler.
func Subscriptions(l *Layout) []watch.Subscription {
	return []watch.Subscription{
		{FileSet: l.HTML, Tasks: []string{TaskHTML}},
		{FileSet: l.Images, Tasks: []string{TaskImages}},
		{FileSet: l.AppStylesheet, Tasks: []string{TaskCSSLint, TaskCSS}},
		{FileSet: l.BootstrapFonts, Tasks: []string{TaskBootstrapFont}},
		{FileSet: l.UIGridFonts, Tasks: []string{TaskUIGridFont}},
	}
}
