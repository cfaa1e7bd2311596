package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"timetable-engine/internal/domain"
	"timetable-engine/internal/resolve"
)

func newQTableCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qtable",
		Short: "Inspect a persisted Q-table",
	}
	cmd.AddCommand(newQTableInspectCommand())
	return cmd
}

func newQTableInspectCommand() *cobra.Command {
	var (
		qtableDir  string
		orgID      string
		semesterID string
		sample     int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print summary statistics and a sample of rows for one (org, semester) Q-table",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := resolve.NewFileStore(qtableDir)
			if err != nil {
				return err
			}
			key := domain.QTableKey{OrgID: orgID, SemesterID: semesterID}
			qt, err := store.Load(key)
			if err != nil {
				return err
			}

			entries, transferred := qt.Snapshot()
			sort.Slice(entries, func(i, j int) bool {
				if entries[i].StateHash != entries[j].StateHash {
					return entries[i].StateHash < entries[j].StateHash
				}
				return entries[i].Action < entries[j].Action
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "org=%s semester=%s entries=%d transferred_states=%d\n", orgID, semesterID, len(entries), len(transferred))

			if sample <= 0 || sample > len(entries) {
				sample = len(entries)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "state_hash\taction\tq")
			for _, e := range entries[:sample] {
				fmt.Fprintf(w, "%d\t%d\t%.4f\n", e.StateHash, e.Action, e.Q)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&qtableDir, "qtable-dir", "./qtables", "directory holding persisted Q-tables")
	cmd.Flags().StringVar(&orgID, "org", "default", "organization id")
	cmd.Flags().StringVar(&semesterID, "semester", "current", "semester id")
	cmd.Flags().IntVar(&sample, "sample", 20, "number of rows to print (0 = all)")

	return cmd
}
