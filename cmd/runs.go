package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/credlens/credcheck/internal/model"
	"github.com/credlens/credcheck/internal/store"
)

var (
	runsLabel string
	runsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
			Label: model.Label(runsLabel),
			Limit: runsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tSCORE\tLABEL\tBIAS\tBY\tTITLE")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.TrustScore, r.Label, r.Bias, r.GeneratedBy, truncateTitle(r.Title))
		}
		return w.Flush()
	},
}

func truncateTitle(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	runsCmd.Flags().StringVar(&runsLabel, "label", "", "filter by label")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum rows")
	rootCmd.AddCommand(runsCmd)
}
