package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit  int    `short:"n" default:"200" help:"Number of most recent events to read"`
	Format string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	if root.HistoryDB == "" {
		return ferrors.ValidationError("history requires --history-db").Build()
	}
	store, err := eventstore.NewSQLiteStore(root.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	evts, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	summaries := eventstore.Summarize(evts)

	if h.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	return writeHistory(os.Stdout, summaries)
}

func writeHistory(w io.Writer, summaries []eventstore.RunSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tKIND\tSTATUS\tDURATION\tTARGETS\tTASKS\tWRITTEN\tERROR")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.StartedAt.Local().Format(time.DateTime),
			s.Kind,
			s.Status,
			s.Duration,
			strings.Join(s.Targets, ","),
			s.Tasks,
			s.Written,
			s.Error)
	}
	return tw.Flush()
}
