package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/siqueiraa/pipemetrics/pkg/store"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the series held by the local backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if env.Store == nil {
				return fmt.Errorf("stats needs the local backend (--backend local)")
			}

			stats, err := env.Store.Stats(cmd.Context(), env.Config.Metrics.Namespace)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERIES\tPOINTS\tSUM\tLAST")
			for _, st := range stats {
				fmt.Fprintf(w, "%s\t%d\t%.0f\t%s\n",
					store.SeriesID(st.Series), st.Points, st.Sum, st.Last.UTC().Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}
