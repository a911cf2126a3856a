package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gormi/adapters/report"
	"gormi/adapters/tabular"
	"gormi/domain/core"
	"gormi/domain/percentile"
	"gormi/internal/aggregate"
	"gormi/internal/analysis"
	"gormi/internal/compare"
	"gormi/internal/config"
	"gormi/internal/estimator"
	"gormi/internal/racemodel"
	"gormi/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	appConfig  *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gormi-cli",
		Short: "Race model inequality analysis for redundant-signals RT data",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using system environment variables")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			appConfig = cfg
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")

	rootCmd.AddCommand(
		newPercentilesCmd(),
		newRaceCmd(),
		newAggregateCmd(),
		newCompareCmd(),
		newAnalyzeCmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readTrials loads a trial file and narrows it to one condition if asked.
func readTrials(path, condition string) (*tabular.Frame, error) {
	reader := tabular.NewReader(path, appConfig.Columns)
	if appConfig.Data.Sheet != "" {
		reader = reader.WithSheet(appConfig.Data.Sheet)
	}
	frame, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if condition != "" {
		frame = frame.Where(core.GroupKey{Condition: condition})
		if frame.Len() == 0 {
			return nil, fmt.Errorf("no trials for condition %q in %s", condition, path)
		}
	}
	return frame, nil
}

func inputArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if appConfig.Data.InputFile != "" {
		return appConfig.Data.InputFile, nil
	}
	return "", fmt.Errorf("no input file: pass one or set data.input_file / GORMI_INPUT_FILE")
}

// writeTables writes percentile tables as CSV to stdout, or to out as
// CSV or XLSX by extension.
func writeTables(out string, tables []*percentile.Table) error {
	if out == "" || out == "-" {
		return tabular.WritePercentilesCSV(os.Stdout, tables)
	}
	if strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return tabular.WritePercentilesXLSX(out, tables)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()
	if err := tabular.WritePercentilesCSV(f, tables); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d tables to %s\n", len(tables), out)
	return nil
}

func newPercentilesCmd() *cobra.Command {
	var out, condition, by string

	cmd := &cobra.Command{
		Use:   "percentiles [trial-file]",
		Short: "Estimate percentile tables per group of trials",
		Long: `Estimate one percentile table per group of a trial file (CSV or XLSX).

Groups are formed from the levels given with --by (default: subject,condition,channel).

Example: gormi-cli percentiles trials.csv --by subject,channel --out percentiles.xlsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := inputArg(args)
			if err != nil {
				return err
			}
			frame, err := readTrials(path, condition)
			if err != nil {
				return err
			}
			var levels []core.Level
			for _, part := range strings.Split(by, ",") {
				level, ok := core.ParseLevel(part)
				if !ok {
					return fmt.Errorf("unknown grouping level %q", part)
				}
				levels = append(levels, level)
			}

			groups := frame.GroupBy(levels...)
			samples := make([]estimator.LabeledSample, len(groups))
			for i, g := range groups {
				samples[i] = estimator.LabeledSample{Label: g.Key.String(), RTs: g.RTs}
			}
			tables, err := estimator.EstimateAll(samples, appConfig.Analysis.Estimator)
			if err != nil {
				return err
			}
			return writeTables(out, tables)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (.csv or .xlsx); stdout when empty")
	cmd.Flags().StringVar(&condition, "condition", "", "Only use trials of this condition")
	cmd.Flags().StringVar(&by, "by", "subject,condition,channel", "Grouping levels")
	return cmd
}

func newRaceCmd() *cobra.Command {
	var out, condition string

	cmd := &cobra.Command{
		Use:   "race [trial-file]",
		Short: "Compute the race model bound for every subject",
		Long: `Compute the race model bound F_A(t) + F_B(t) for each subject from the
single-channel trials, in quantile form on the configured grid.

Example: gormi-cli race trials.csv --condition audiovisual`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := inputArg(args)
			if err != nil {
				return err
			}
			frame, err := readTrials(path, condition)
			if err != nil {
				return err
			}
			design := appConfig.Analysis.Design
			subjects := frame.Subjects()
			as, err := frame.Samples(design.ChannelA, subjects)
			if err != nil {
				return err
			}
			bs, err := frame.Samples(design.ChannelB, subjects)
			if err != nil {
				return err
			}

			bounds := make([]*percentile.Table, len(subjects))
			for i, subject := range subjects {
				pred, err := racemodel.PredictFromSamples(as[i], bs[i], appConfig.Analysis.Estimator)
				if err != nil {
					return fmt.Errorf("subject %s: %w", subject, err)
				}
				bounds[i] = pred.Table().WithLabel(subject)
			}
			return writeTables(out, bounds)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (.csv or .xlsx); stdout when empty")
	cmd.Flags().StringVar(&condition, "condition", "", "Only use trials of this condition")
	return cmd
}

func newAggregateCmd() *cobra.Command {
	var out, mode, label string

	cmd := &cobra.Command{
		Use:   "aggregate [percentile-file]",
		Short: "Reduce a file of percentile tables to one table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := tabular.ReadPercentiles(args[0])
			if err != nil {
				return err
			}
			opts := appConfig.Analysis.Aggregate
			if mode != "" {
				opts.Mode = aggregate.Mode(mode)
			}
			opts.Label = label
			combined, err := aggregate.Combine(tables, opts)
			if err != nil {
				return err
			}
			return writeTables(out, []*percentile.Table{combined})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (.csv or .xlsx); stdout when empty")
	cmd.Flags().StringVar(&mode, "mode", "", "Aggregation mode: mean|sum")
	cmd.Flags().StringVar(&label, "label", "", "Label of the combined table")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var tests, alternative string
	var ignoreLabels bool

	cmd := &cobra.Command{
		Use:   "compare [x-percentiles] [y-percentiles]",
		Short: "Paired level-wise tests between two files of percentile tables",
		Long: `Compare two groups of percentile tables level by level. Row i of both
files must belong to the same subject.

Example: gormi-cli compare redundant.csv bound.csv --alternative less`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := tabular.ReadPercentiles(args[0])
			if err != nil {
				return err
			}
			y, err := tabular.ReadPercentiles(args[1])
			if err != nil {
				return err
			}
			cfg := compare.DefaultConfig()
			if tests != "" {
				cfg.Tests = compare.ParseTests(tests)
			}
			if alternative != "" {
				cfg.Alternative = compare.Alternative(alternative)
			}
			cfg.IgnoreLabels = ignoreLabels
			res, err := compare.Compare(x, y, cfg)
			if err != nil {
				return err
			}

			fmt.Printf("Alternative: %s\n", res.Alternative)
			fmt.Printf("%-6s %6s %10s %9s %9s %9s %9s\n", "level", "pairs", "mean_diff", "t", "p(t)", "W", "p(W)")
			for _, lr := range res.Results {
				t, pt, w, pw := "-", "-", "-", "-"
				if lr.TTest != nil {
					t, pt = fmt.Sprintf("%.3f", lr.TTest.Statistic), fmt.Sprintf("%.4f", lr.TTest.PValue)
				}
				if lr.Wilcoxon != nil {
					w, pw = fmt.Sprintf("%.1f", lr.Wilcoxon.Statistic), fmt.Sprintf("%.4f", lr.Wilcoxon.PValue)
				}
				fmt.Printf("%-6.2f %6d %10.2f %9s %9s %9s %9s\n", lr.Level, lr.Pairs, lr.MeanDifference, t, pt, w, pw)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tests, "tests", "", "Comma separated tests: ttest,wilcoxon")
	cmd.Flags().StringVar(&alternative, "alternative", "", "two-sided|less|greater (default two-sided)")
	cmd.Flags().BoolVar(&ignoreLabels, "ignore-labels", false, "Do not require matching table labels")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var out, format, workbook, condition string

	cmd := &cobra.Command{
		Use:   "analyze [trial-file]",
		Short: "Run the full race model analysis and write a report",
		Long: `Estimate per-subject tables, race bounds and group aggregates, then test
the redundant CDF against the bound at every percentile level.

Example: gormi-cli analyze trials.xlsx --condition audiovisual --format html --out report.html --workbook report.xlsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := inputArg(args)
			if err != nil {
				return err
			}
			frame, err := readTrials(path, condition)
			if err != nil {
				return err
			}
			cfg := appConfig.Analysis
			if condition != "" {
				cfg.Condition = condition
			}
			return runAnalyze(cmd.Context(), frame, cfg, format, out, workbook)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Report file; stdout when empty")
	cmd.Flags().StringVar(&format, "format", "markdown", "Report format: markdown|html|json")
	cmd.Flags().StringVar(&workbook, "workbook", "", "Also write an XLSX workbook to this path")
	cmd.Flags().StringVar(&condition, "condition", "", "Only use trials of this condition")
	return cmd
}

func runAnalyze(ctx context.Context, frame *tabular.Frame, cfg analysis.Config, format, out, workbook string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	analyzer, err := analysis.NewAnalyzer(cfg, frame)
	if err != nil {
		return err
	}
	start := time.Now()
	rep, err := analyzer.Run(ctx)
	if err != nil {
		return err
	}

	var body []byte
	switch format {
	case "markdown", "md":
		body = []byte(report.Markdown(rep))
	case "html":
		body = report.HTML(rep)
	case "json":
		if body, err = json.MarshalIndent(rep, "", "  "); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	default:
		return fmt.Errorf("unknown report format %q", format)
	}

	if out == "" {
		os.Stdout.Write(body)
	} else if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if workbook != "" {
		if err := report.WriteWorkbook(rep, workbook); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Analysis %s: %d subjects in %v, violated levels at alpha %.2f: %v\n",
		rep.ID, len(rep.Subjects), time.Since(start).Round(time.Millisecond), report.Alpha, rep.ViolatedLevels(report.Alpha))
	return nil
}

func newGenerateCmd() *cobra.Command {
	gen := testkit.DefaultRTConfig()

	cmd := &cobra.Command{
		Use:   "generate [out-file]",
		Short: "Write a synthetic redundant-signals data set",
		Long: `Draw ex-Gaussian RTs for channels A, B and AB. With --coactivation > 0 the
redundant trials are faster than a race allows.

Example: gormi-cli generate trials.csv --subjects 20 --trials 150 --coactivation 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := testkit.GenerateRT(gen)
			if err != nil {
				return err
			}
			if strings.EqualFold(filepath.Ext(args[0]), ".xlsx") {
				err = ds.WriteXLSX(args[0])
			} else {
				err = ds.WriteCSV(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d trials for %d subjects to %s\n", len(ds.Rows), len(ds.Subjects), args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&gen.Subjects, "subjects", gen.Subjects, "Number of subjects")
	cmd.Flags().IntVar(&gen.Trials, "trials", gen.Trials, "Trials per subject and channel")
	cmd.Flags().Uint64Var(&gen.Seed, "seed", gen.Seed, "Random seed")
	cmd.Flags().Float64Var(&gen.MuA, "mu-a", gen.MuA, "Gaussian mean of channel A (ms)")
	cmd.Flags().Float64Var(&gen.MuB, "mu-b", gen.MuB, "Gaussian mean of channel B (ms)")
	cmd.Flags().Float64Var(&gen.Sigma, "sigma", gen.Sigma, "Gaussian SD (ms)")
	cmd.Flags().Float64Var(&gen.Tau, "tau", gen.Tau, "Exponential mean (ms)")
	cmd.Flags().Float64Var(&gen.Coactivation, "coactivation", gen.Coactivation, "Speed-up of redundant trials beyond the race (ms)")
	cmd.Flags().StringVar(&gen.Condition, "condition", gen.Condition, "Condition label")
	return cmd
}
