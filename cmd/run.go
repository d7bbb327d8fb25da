package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/export"
	"github.com/sells-group/catalogue-cli/internal/metrics"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/pipeline"
	"github.com/sells-group/catalogue-cli/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline once",
	Long:  "Fetches every enabled source (or those named by --sources), validates and deduplicates the candidates, and writes the batch to the configured store, export directory, and metrics textfile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sources, _ := cmd.Flags().GetStringSlice("sources")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		batch, err := runPipeline(ctx, cfg, sources, dryRun)
		if batch != nil {
			formatRunSummary(os.Stdout, batch)
		}
		if err != nil {
			return eris.Wrap(err, "run")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringSlice("sources", nil, "comma-separated source names to run (default: all enabled)")
	runCmd.Flags().Bool("dry-run", false, "fetch and deduplicate without writing to any sink")
	rootCmd.AddCommand(runCmd)
}

// runPipeline builds the sinks and an orchestrator for one run and executes it.
func runPipeline(ctx context.Context, c *config.Config, sources []string, dryRun bool) (*model.Batch, error) {
	sinks, closeSinks, err := buildSinks(ctx, c, dryRun)
	if err != nil {
		return nil, err
	}
	defer closeSinks()

	o, err := pipeline.Build(c, sources, sinks...)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx)
}

// buildSinks returns the configured sinks in write order: store, export,
// metrics. A dry run writes nothing.
func buildSinks(ctx context.Context, c *config.Config, dryRun bool) ([]pipeline.Sink, func(), error) {
	noop := func() {}
	if dryRun {
		return nil, noop, nil
	}

	var sinks []pipeline.Sink
	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, noop, err
	}
	closeFn := noop
	if st != nil {
		sinks = append(sinks, st)
		closeFn = func() {
			if err := st.Close(); err != nil {
				zap.L().Warn("close store", zap.Error(err))
			}
		}
	}

	if c.Export.Dir != "" {
		w, err := export.NewWriter(c.Export.Dir, c.Export.Formats)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		sinks = append(sinks, w)
	}

	if c.Metrics.Textfile != "" {
		sinks = append(sinks, metrics.New(c.Metrics.Textfile))
	}
	return sinks, closeFn, nil
}

// formatRunSummary writes the run statistics as a short report.
func formatRunSummary(out io.Writer, b *model.Batch) {
	s := b.Stats
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", b.RunID)
	phase := string(s.Phase)
	if s.Cancelled {
		phase += " (cancelled, sinks skipped)"
	}
	_, _ = fmt.Fprintf(w, "Phase:\t%s\n", phase)
	_, _ = fmt.Fprintf(w, "Sources:\t%d run, %d failed\n", s.SourcesRun, s.SourcesFailed)
	_, _ = fmt.Fprintf(w, "Candidates:\t%d found, %d filtered out\n", s.CandidatesFound, s.FilteredOut)
	_, _ = fmt.Fprintf(w, "Validation:\t%d valid, %d rejected\n", s.ValidCandidates, s.Rejected)
	_, _ = fmt.Fprintf(w, "Entities:\t%d created, %d merged, %d flagged\n", s.EntitiesCreated, s.DuplicatesMerged, s.FlaggedForReview)
	_, _ = fmt.Fprintf(w, "Errors:\t%d\n", s.Errors)
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Duration:\t%s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	_ = w.Flush()

	if len(s.Sources) == 0 {
		return
	}
	names := make([]string, 0, len(s.Sources))
	for name := range s.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tUNITS\tFAILED\tCANDIDATES\tFILTERED\tERRORS")
	for _, name := range names {
		sum := s.Sources[name]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			name, sum.Units, sum.UnitsFailed, sum.Candidates, sum.FilteredOut, s.ErrorsBySource[name])
	}
	_ = w.Flush()
}
