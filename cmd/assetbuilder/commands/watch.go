package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// WatchCmd implements the 'watch' command (alias 'serve').
type WatchCmd struct {
	Addr string `name:"addr" help:"Dev server listen address (overrides config)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, closeFn, err := root.OpenPipeline(g, func(cfg *config.BuildConfig) {
		if w.Addr != "" {
			cfg.Addr = w.Addr
		}
	})
	if err != nil {
		return err
	}
	defer closeFn()

	if err := p.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Serving %s at http://%s (Ctrl+C to stop)\n", p.OutputDir(), p.Addr())

	<-ctx.Done()
	g.Logger.Info("Shutdown signal received, stopping...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		return err
	}
	g.Logger.Info("Stopped", slog.String("output", p.OutputDir()))
	return nil
}
