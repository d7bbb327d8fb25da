package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their work units",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := source.NewRegistry(cfg.EnabledSources(), cfg.Source)
		if err != nil {
			return eris.Wrap(err, "sources")
		}
		showUnits, _ := cmd.Flags().GetBool("units")
		formatSources(os.Stdout, cfg.Sources, reg, showUnits)
		return nil
	},
}

func init() {
	sourcesCmd.Flags().Bool("units", false, "also list every unit of each enabled source")
	rootCmd.AddCommand(sourcesCmd)
}

// formatSources writes a table of configured sources; disabled sources are
// listed but have no units.
func formatSources(out io.Writer, cfgs []config.SourceConfig, reg *source.Registry, showUnits bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTYPE\tSTATE\tUNITS\tBASE URL")
	for _, sc := range cfgs {
		units := "disabled"
		if a, err := reg.Get(sc.Name); err == nil {
			units = fmt.Sprintf("%d", len(a.Units()))
		}
		state := sc.State
		if state == "" {
			state = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", sc.Name, sc.Type, state, units, sc.BaseURL)
	}
	_ = w.Flush()

	if !showUnits {
		return
	}
	for _, a := range reg.All() {
		_, _ = fmt.Fprintf(out, "\n%s:\n", a.Name())
		for _, u := range a.Units() {
			_, _ = fmt.Fprintf(out, "  %s\n", u)
		}
	}
}
