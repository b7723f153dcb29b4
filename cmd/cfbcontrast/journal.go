package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinstat/cfbcontrast/journal"
)

var flagJournalDB string

func init() {
	journalCmd.PersistentFlags().StringVar(&flagJournalDB, "db", "cfbcontrast.sqlite", "path to the SQLite journal")
	journalCmd.AddCommand(journalShowCmd)
	rootCmd.AddCommand(journalCmd)
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect journaled analysis runs",
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the contrast table of a journaled run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {

		j, err := journal.NewSQLite(flagJournalDB)
		if err != nil {
			return err
		}
		defer j.Close()

		recs, err := j.GetContrasts(args[0])
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("no contrasts for run %s", args[0])
		}

		fmt.Printf("%8s %9s %10s %10s %10s %10s\n",
			"visit", "subgroup", "estimate", "se", "lower", "upper")
		for _, c := range recs {
			if !c.Estimable {
				fmt.Printf("%8g %9g %10s %10s %10s %10s\n",
					c.Visit, c.Subgroup, "NE", "NE", "NE", "NE")
				continue
			}
			fmt.Printf("%8g %9g %10.3f %10.3f %10.3f %10.3f\n",
				c.Visit, c.Subgroup, c.Estimate, c.SE, c.Lower, c.Upper)
		}

		return nil
	},
}
