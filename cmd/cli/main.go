package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"

	"dixonq/adapters/postgres"
	"dixonq/adapters/samples"
	"dixonq/domain/core"
	"dixonq/domain/dixon"
	"dixonq/internal/config"
	"dixonq/internal/container"
	"dixonq/internal/errors"
	"dixonq/internal/report"
	"dixonq/internal/streams"
	"dixonq/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand
type cli struct {
	cfg     *config.Config
	verbose bool
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	rootCmd := &cobra.Command{
		Use:           "dixonq",
		Short:         "Dixon's Q-test outlier detection for small samples",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !app.verbose {
				log.SetOutput(io.Discard)
			}
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Log progress to stderr")
	rootCmd.SetFlagErrorFunc(negativeSampleHint)

	rootCmd.AddCommand(
		newClassifyCmd(app),
		newEvaluateCmd(app),
		newTableCmd(),
	)
	return rootCmd
}

// pflag reports "-5" as an unknown shorthand flag
var negativeSample = regexp.MustCompile(`unknown shorthand flag: '[0-9.]' in (-[0-9.]\S*)`)

func negativeSampleHint(cmd *cobra.Command, err error) error {
	m := negativeSample.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	return errors.InvalidInput(fmt.Sprintf("%s is read as a flag: put -- before negative samples (%s [flags] -- %s ...)",
		m[1], cmd.CommandPath(), m[1]))
}

type classifyOptions struct {
	window     int
	confidence string
	policy     string
	file       string
	columns    []string
	sheet      string
	jsonPath   string
	format     string
	record     bool
}

func newClassifyCmd(app *cli) *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify [values...]",
		Short: "Stream samples through fixed-size windows and test each full window",
		Long: `Stream samples through a classifier per series. Every time a window fills,
it is tested for outliers at both ends and one line is printed.

Samples come from the arguments, from --file (csv, xlsx, json or text), or from stdin.
Put -- before the values when any of them is negative.

Examples:
  dixonq classify --window 3 5 1 1 1 5 5
  dixonq classify --window 3 -- -5 1 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.Context(), app, opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.window, "window", "w", 0, "Window size 3..30 (default DIXON_WINDOW_SIZE or 8)")
	cmd.Flags().StringVarP(&opts.confidence, "confidence", "c", "", "Confidence level 90, 95 or 99 (default DIXON_CONFIDENCE or 95)")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "Window policy: batch or sliding (default DIXON_WINDOW_POLICY or batch)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read samples from a csv, xlsx, json or text file")
	cmd.Flags().StringSliceVar(&opts.columns, "column", nil, "Only classify these columns of a tabular file")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Worksheet of an xlsx file")
	cmd.Flags().StringVar(&opts.jsonPath, "json-path", "", "Path to the samples inside a JSON document")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, markdown or html")
	cmd.Flags().BoolVar(&opts.record, "record", false, "Persist evaluations to the DATABASE_URL ledger")

	return cmd
}

func (o *classifyOptions) settings(cfg *config.Config) (streams.Settings, error) {
	settings := streams.Settings{
		Capacity: cfg.Classifier.WindowSize,
		Level:    cfg.Classifier.Confidence,
		Policy:   cfg.Classifier.Policy,
	}
	if o.window != 0 {
		settings.Capacity = o.window
	}
	if o.confidence != "" {
		level, err := dixon.ParseConfidenceLevel(o.confidence)
		if err != nil {
			return settings, err
		}
		settings.Level = level
	}
	if o.policy != "" {
		policy, err := dixon.ParseWindowPolicy(o.policy)
		if err != nil {
			return settings, err
		}
		settings.Policy = policy
	}
	return settings, nil
}

func (o *classifyOptions) reader(args []string, stdin io.Reader) (ports.SampleReader, error) {
	switch {
	case o.file != "" && len(args) > 0:
		return nil, errors.InvalidInput("pass values either as arguments or with --file, not both")
	case o.file != "":
		var readerOpts []samples.Option
		if len(o.columns) > 0 {
			readerOpts = append(readerOpts, samples.WithColumns(o.columns...))
		}
		if o.sheet != "" {
			readerOpts = append(readerOpts, samples.WithSheet(o.sheet))
		}
		if o.jsonPath != "" {
			readerOpts = append(readerOpts, samples.WithJSONPath(o.jsonPath))
		}
		return samples.NewDataReader(o.file, readerOpts...), nil
	case len(args) > 0:
		values, err := parseArgs(args)
		if err != nil {
			return nil, err
		}
		return staticReader{{Name: "args", Values: values}}, nil
	default:
		return samples.NewStreamReader("stdin", stdin), nil
	}
}

// staticReader serves series already held in memory
type staticReader []ports.SampleSeries

func (s staticReader) ReadSeries(context.Context) ([]ports.SampleSeries, error) {
	return s, nil
}

func parseArgs(args []string) ([]float64, error) {
	values := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("%q is not a number", arg))
		}
		values = append(values, v)
	}
	return values, nil
}

func runClassify(ctx context.Context, app *cli, opts *classifyOptions, args []string, stdin io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	settings, err := opts.settings(app.cfg)
	if err != nil {
		return err
	}
	reader, err := opts.reader(args, stdin)
	if err != nil {
		return err
	}
	series, err := reader.ReadSeries(ctx)
	if err != nil {
		return err
	}

	var registryOpts []streams.Option
	if opts.record {
		db, err := container.OpenDatabase(ctx, app.cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		registryOpts = append(registryOpts, streams.WithRecorder(postgres.NewEvaluationRepository(db)))
	}
	registry, err := streams.NewRegistry(settings, registryOpts...)
	if err != nil {
		return err
	}

	// One stream per series; series are classified concurrently and
	// reported in input order.
	results := make([][]report.Row, len(series))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range series {
		i, s := i, s
		id := core.StreamID(s.Name)
		if _, err := registry.Open(id, settings); err != nil {
			return errors.Wrapf(err, "series %q", s.Name)
		}
		g.Go(func() error {
			evals, err := registry.IngestBatch(gctx, id, s.Values)
			if err != nil {
				return errors.Wrapf(err, "series %q", s.Name)
			}
			rows := make([]report.Row, len(evals))
			for j, eval := range evals {
				rows[j] = report.Row{Series: s.Name, Window: j + 1, Eval: eval}
			}
			results[i] = rows

			if info, err := registry.Snapshot(id); err == nil && info.Buffered > 0 && len(evals) == 0 {
				log.Printf("[Classify] %s: %d samples buffered, window of %d never filled", s.Name, info.Buffered, settings.Capacity)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var rows []report.Row
	for _, r := range results {
		rows = append(rows, r...)
	}
	return report.Render(out, format, "Dixon Q-test", rows)
}

func newEvaluateCmd(app *cli) *cobra.Command {
	var confidence, format string

	cmd := &cobra.Command{
		Use:   "evaluate [values...]",
		Short: "Test one complete sample (3 to 30 values) for outliers",
		Long: `Run a single Q-test over all given values, read from the arguments or stdin.
Put -- before the values when any of them is negative.

Examples:
  dixonq evaluate --confidence 99 0.189 0.167 0.187 0.183 0.186 0.182 0.181 0.184 0.181 0.177
  dixonq evaluate -- -2.5 0.1 0.2 0.15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			level := app.cfg.Classifier.Confidence
			if confidence != "" {
				if level, err = dixon.ParseConfidenceLevel(confidence); err != nil {
					return err
				}
			}

			var values []float64
			if len(args) > 0 {
				values, err = parseArgs(args)
			} else {
				values, err = samples.ParseValues(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			eval, err := dixon.Evaluate(values, level)
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), outFormat, "Dixon Q-test", []report.Row{{Series: "sample", Window: 1, Eval: eval}})
		},
	}

	cmd.Flags().StringVarP(&confidence, "confidence", "c", "", "Confidence level 90, 95 or 99")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, markdown or html")
	return cmd
}

func newTableCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the critical Q values for n = 3..30",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			return report.RenderCriticalValues(cmd.OutOrStdout(), outFormat)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, markdown or html")
	return cmd
}
