package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, closeFn, err := root.OpenPipeline(g, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := p.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Build completed in %s: %d tasks, %d files written to %s\n",
		report.Duration.Round(time.Millisecond), len(report.Executed()), len(report.Written()), p.OutputDir())
	return nil
}
