package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"phackdemo/adapters/excel"
	"phackdemo/adapters/rng"
	"phackdemo/app"
	"phackdemo/domain/calibration"
	"phackdemo/domain/core"
	"phackdemo/domain/demo"
	"phackdemo/domain/run"
	"phackdemo/domain/trial"
	"phackdemo/internal/container"
	"phackdemo/internal/narrative"
	"phackdemo/ports"
)

const recordTimeout = 5 * time.Second

func newGenerateCmd() *cobra.Command {
	var (
		seed       int64
		batchSize  int
		sampleSize int
		out        string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a batch of null-effect comparisons",
		Long: `Generate a batch of comparisons where both groups come from the same
distribution and score each with the demo's pseudo p-value.

Example: phackdemo generate --seed 42 --out batch.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			sim := c.Config.Simulation
			if !cmd.Flags().Changed("batch-size") {
				batchSize = sim.BatchSize
			}
			if !cmd.Flags().Changed("sample-size") {
				sampleSize = sim.SampleSize
			}
			seed = pickSeed(seed, sim.Seed)

			stream, err := c.RNG.Stream(cmd.Context(), "", "batch-0", seed)
			if err != nil {
				return err
			}
			batch, err := c.Generator.GenerateBatch(cmd.Context(), stream, batchSize, sampleSize)
			if err != nil {
				return err
			}

			if out != "" {
				if err := excel.WriteBatch(out, batch); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d comparisons to %s\n", batch.Len(), out)
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(batch)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seed %d, batch %s\n", seed, batch.Fingerprint().Short())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMEAN A\tMEAN B\tT\tP\tSIGNIFICANT")
			for _, cmp := range batch.Comparisons() {
				fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.3f\t%.4f\t%v\n",
					cmp.ID(), cmp.MeanA(), cmp.MeanB(), cmp.TStatistic(), cmp.PValue(), cmp.Significant())
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses SEED or a fresh seed)")
	cmd.Flags().IntVar(&batchSize, "batch-size", trial.DefaultBatchSize, "Comparisons per batch")
	cmd.Flags().IntVar(&sampleSize, "sample-size", trial.DefaultSampleSize, "Observations per group")
	cmd.Flags().StringVar(&out, "out", "", "Write the batch to an .xlsx fixture")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch as JSON")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		seed     int64
		trialCap int
		fixture  string
		interval time.Duration
		reveal   time.Duration
		noRecord bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Hunt for significance: draw comparisons until the trial cap",
		Long: `Draw comparisons at random from a batch, one per trial, counting every
p < 0.05 as a "finding", then reveal that all of them were false positives.

Example: phackdemo run --seed 7 --interval 300ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			cfg := c.Config
			if !cmd.Flags().Changed("cap") {
				trialCap = cfg.Simulation.TrialCap
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Pacing.TrialInterval
			}
			if !cmd.Flags().Changed("reveal") {
				reveal = cfg.Pacing.RevealDelay
			}
			seed = pickSeed(seed, cfg.Simulation.Seed)

			batch, err := loadBatch(cmd, c, fixture, seed)
			if err != nil {
				return err
			}

			draws, err := c.RNG.Stream(ctx, "", "draws-0", seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sink := ports.SinkFuncs{
				Trial: func(ev trial.Event) {
					cmp := ev.Comparison
					mark := ""
					if cmp.Significant() {
						mark = "  significant!"
					}
					fmt.Fprintf(out, "trial %2d/%d  comparison %2d  p = %.4f  found %d%s\n",
						ev.TrialIndex, trialCap, cmp.ID(), cmp.PValue(), ev.RunningSignificantCount, mark)
				},
			}

			r, err := c.Simulator.Start(batch, trialCap, draws, sink)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", narrative.PhaseMessage(demo.PhaseReady, trial.Summary{}))

			if !noRecord {
				if err := c.InitLedger(ctx); err != nil {
					return err
				}
			}

			startedAt := time.Now()
			summary, driveErr := app.NewPacedDriver(interval, reveal, c.Logger).Drive(ctx, r)
			if driveErr != nil {
				fmt.Fprintf(out, "\naborted after %d of %d trials\n", summary.TrialsCompleted, summary.Cap)
			}

			if !noRecord {
				fp := run.NewFingerprint(seed, batch.Fingerprint(), trialCap, cfg.Simulation.CodeVersion)
				rec := run.NewRecord(core.NewRunID(), fp, batch, summary, startedAt, time.Now())
				recordRun(c, rec)
			}

			if driveErr != nil {
				return driveErr
			}
			fmt.Fprintf(out, "\n%s\n", narrative.RealityCheck(summary))
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses SEED or a fresh seed)")
	cmd.Flags().IntVar(&trialCap, "cap", trial.DefaultTrialCap, "Number of trials")
	cmd.Flags().StringVar(&fixture, "fixture", "", "Read the batch from an .xlsx or .csv fixture")
	cmd.Flags().DurationVar(&interval, "interval", 300*time.Millisecond, "Delay between trials")
	cmd.Flags().DurationVar(&reveal, "reveal", time.Second, "Delay before the reality check")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not write the run to the ledger")
	return cmd
}

func newCalibrateCmd() *cobra.Command {
	var (
		n       int
		seed    int64
		workers int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure the false-positive rate of the generator",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			report, err := c.Calibration.Report(cmd.Context(), calibration.Request{
				Comparisons: n,
				SampleSize:  c.Config.Simulation.SampleSize,
				Seed:        seed,
				Workers:     workers,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "comparisons:  %d (sample size %d, seed %d)\n", n, report.Request.SampleSize, seed)
			fmt.Fprintf(out, "significant:  %d (%.2f%%)\n", report.SignificantCount, report.Rate*100)
			fmt.Fprintf(out, "%.0f%% CI:       %.2f%% - %.2f%%\n", report.Interval.Level*100, report.Interval.Low*100, report.Interval.High*100)
			d := report.PValues
			fmt.Fprintf(out, "p-values:     min %.4f  q1 %.4f  median %.4f  mean %.4f  q3 %.4f  max %.4f\n",
				d.Min, d.Q1, d.Median, d.Mean, d.Q3, d.Max)
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 100000, "Number of comparisons")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent generators")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)
			if err := c.InitLedger(ctx); err != nil {
				return err
			}

			filters := ports.RunFilters{Limit: limit}
			if status != "" {
				st := run.Status(status)
				filters.Status = &st
			}
			records, err := c.Ledger.ListRuns(ctx, filters)
			if err != nil {
				return err
			}
			totals, err := c.Ledger.Totals(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tFINISHED\tSTATUS\tSEED\tTRIALS\tSIGNIFICANT")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%d\n",
					r.ID, r.FinishedAt.Local().Format(time.DateTime), r.Status, r.Seed,
					r.TrialsCompleted, r.TrialCap, r.SignificantCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d runs, %d trials, %d false positives (%.2f%%)\n",
				totals.Runs, totals.Trials, totals.SignificantCount, totals.FalsePositiveRate()*100)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: complete|aborted")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file.xlsx]",
		Short: "Export the run ledger to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)
			if err := c.InitLedger(ctx); err != nil {
				return err
			}

			records, err := c.Ledger.ListRuns(ctx, ports.RunFilters{})
			if err != nil {
				return err
			}
			totals, err := c.Ledger.Totals(ctx)
			if err != nil {
				return err
			}
			if err := excel.ExportRuns(args[0], records, totals); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d runs to %s\n", len(records), args[0])
			return nil
		},
	}
	return cmd
}

// loadBatch reads a fixture when one is given, otherwise generates the batch
// for seed the same way a demo session does
func loadBatch(cmd *cobra.Command, c *container.Container, fixture string, seed int64) (trial.Batch, error) {
	if fixture != "" {
		return excel.NewBatchReader(fixture, c.Logger).ReadBatch()
	}
	stream, err := c.RNG.Stream(cmd.Context(), "", "batch-0", seed)
	if err != nil {
		return trial.Batch{}, err
	}
	sim := c.Config.Simulation
	return c.Generator.GenerateBatch(cmd.Context(), stream, sim.BatchSize, sim.SampleSize)
}

// recordRun writes rec under its own deadline so a run cancelled with Ctrl-C
// is still recorded as aborted
func recordRun(c *container.Container, rec run.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := c.Ledger.RecordRun(ctx, rec); err != nil {
		c.Logger.Error("failed to record run %s: %v", rec.ID, err)
	}
}

func pickSeed(flag, configured int64) int64 {
	switch {
	case flag != 0:
		return flag
	case configured != 0:
		return configured
	}
	return rng.NewSeed()
}
