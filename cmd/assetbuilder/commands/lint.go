package commands

import (
	"os"

	"git.home.luguber.info/inful/assetbuilder/internal/lint"
)

// LintCmd implements the 'lint' command.
type LintCmd struct {
	Format string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Quiet  bool   `short:"q" help:"Quiet mode: only show errors, suppress warnings"`
}

func (l *LintCmd) Run(g *Global, root *CLI) error {
	p, closeFn, err := root.OpenPipeline(g, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	cfg := &lint.Config{Quiet: l.Quiet, Format: l.Format}
	result, err := p.Lint(cfg)
	if err != nil {
		return err
	}

	if err := lint.NewFormatter(l.Format).Format(os.Stdout, result, p.Config().SourceDir); err != nil {
		return err
	}
	return result.Err("lint")
}
