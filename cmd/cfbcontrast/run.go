package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinstat/cfbcontrast/analysis"
	"github.com/clinstat/cfbcontrast/config"
	"github.com/clinstat/cfbcontrast/journal"
	"github.com/clinstat/cfbcontrast/report"
)

var (
	flagConfig  string
	flagPlot    string
	flagCSV     string
	flagDB      string
	flagVerbose bool
)

func init() {
	runCmd.Flags().StringVarP(&flagConfig, "config", "c", "analysis.yaml", "analysis configuration file")
	runCmd.Flags().StringVar(&flagPlot, "plot", "", "write the contrast plot to this file (overrides config)")
	runCmd.Flags().StringVar(&flagCSV, "csv", "", "write the contrast table to this CSV file (overrides config)")
	runCmd.Flags().StringVar(&flagDB, "db", "", "journal the run to this SQLite database (overrides config)")
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log fit diagnostics to stderr")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis pipeline from a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := config.LoadFromFile(flagConfig)
		if err != nil {
			return err
		}
		if flagPlot != "" {
			cfg.Output.Plot = flagPlot
		}
		if flagCSV != "" {
			cfg.Output.CSV = flagCSV
		}
		if flagDB != "" {
			cfg.Output.DB = flagDB
		}

		var lg *log.Logger
		if flagVerbose {
			lg = log.New(os.Stderr, "cfbcontrast: ", 0)
		}

		rslt, err := analysis.Run(cfg, lg)
		if err != nil {
			return err
		}

		fmt.Println(rslt.Model.Summary().String())
		fmt.Println(report.ContrastSummary(rslt.Contrasts).String())

		if cfg.Output.Plot != "" {
			if err := report.SaveContrastPlot(rslt.Contrasts, nil, cfg.Output.Plot); err != nil {
				return fmt.Errorf("write plot: %w", err)
			}
			fmt.Printf("wrote plot to %s\n", cfg.Output.Plot)
		}

		if cfg.Output.CSV != "" {
			fid, err := os.Create(cfg.Output.CSV)
			if err != nil {
				return err
			}
			if err := journal.WriteCSV(fid, rslt.Contrasts); err != nil {
				fid.Close()
				return fmt.Errorf("write csv: %w", err)
			}
			if err := fid.Close(); err != nil {
				return err
			}
			fmt.Printf("wrote contrasts to %s\n", cfg.Output.CSV)
		}

		if cfg.Output.DB != "" {
			j, err := journal.NewSQLite(cfg.Output.DB)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()
			runID := journal.NewRunID()
			if err := j.RecordRun(runID, time.Now(), cfg.Input, rslt.Contrasts); err != nil {
				return err
			}
			fmt.Printf("journaled run %s to %s\n", runID, cfg.Output.DB)
		}

		return nil
	},
}
