package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsar/internal/metrics"
	"github.com/roach88/pulsar/internal/model"
	"github.com/roach88/pulsar/internal/residuals"
	"github.com/roach88/pulsar/internal/store"
	"github.com/roach88/pulsar/internal/tim"
	"github.com/roach88/pulsar/internal/toa"
)

// ResidualsOptions holds flags for the residuals command.
type ResidualsOptions struct {
	*RootOptions
	Model        string
	SubtractMean bool
	Workers      int
	Sort         string
	NFree        int
	ShowResids   bool
	Database     string
	SaveAs       string
	MetricsFile  string

	// RunIDs overrides the store's run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// ResidualRow is one TOA's residual in command output.
type ResidualRow struct {
	Index   int     `json:"index"`
	Name    string  `json:"name,omitempty"`
	MJD     string  `json:"mjd"`
	Obs     string  `json:"obs"`
	ResidUS float64 `json:"resid_us"`
	ErrorUS float64 `json:"error_us"`
}

// ResidualsOutput is the residuals command result.
type ResidualsOutput struct {
	File        string            `json:"file"`
	Fingerprint string            `json:"fingerprint"`
	Sort        string            `json:"sort,omitempty"`
	Summary     residuals.Summary `json:"summary"`
	RunID       string            `json:"run_id,omitempty"`
	Residuals   []ResidualRow     `json:"residuals,omitempty"`
}

// Text renders the output for humans.
func (o ResidualsOutput) Text() string {
	var b strings.Builder
	s := o.Summary
	fmt.Fprintf(&b, "file:          %s\n", o.File)
	fmt.Fprintf(&b, "model:         %s\n", s.Model)
	fmt.Fprintf(&b, "toas:          %d\n", s.TOAs)
	if o.Sort != "" {
		fmt.Fprintf(&b, "sorted by:     %s\n", o.Sort)
	}
	fmt.Fprintf(&b, "subtract mean: %t\n", s.SubtractMean)
	if s.SubtractMean {
		fmt.Fprintf(&b, "mean:          %.6f us\n", s.Mean*1e6)
	}
	fmt.Fprintf(&b, "chi2:          %.6f\n", s.Chi2)
	fmt.Fprintf(&b, "dof:           %d\n", s.DOF)
	fmt.Fprintf(&b, "reduced chi2:  %.6f\n", s.ReducedChi2)
	fmt.Fprintf(&b, "weighted rms:  %.6f us\n", s.WeightedRMS*1e6)
	fmt.Fprintf(&b, "fingerprint:   %s\n", o.Fingerprint)
	if o.RunID != "" {
		fmt.Fprintf(&b, "run:           %s\n", o.RunID)
	}
	if len(o.Residuals) > 0 {
		fmt.Fprintf(&b, "\n%5s  %-24s %-22s %-6s %14s %10s\n", "#", "name", "mjd", "obs", "resid (us)", "err (us)")
		for _, r := range o.Residuals {
			fmt.Fprintf(&b, "%5d  %-24s %-22s %-6s %14.6f %10.3f\n", r.Index, r.Name, r.MJD, r.Obs, r.ResidUS, r.ErrorUS)
		}
	}
	return b.String()
}

// NewResidualsCommand creates the residuals command.
func NewResidualsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResidualsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "residuals <tim-file>",
		Short: "Compute timing residuals and chi-squared",
		Long: `Compute the time residuals of a tim file under a spin model, with their
chi-squared, reduced chi-squared and weighted RMS.

The TOAs are read in the model's time scale. Optionally the table is sorted
first, the result is stored in a SQLite database, and metrics are written
for the node-exporter textfile collector.

Exit codes:
  0 - Residuals computed
  1 - Residuals could not be computed (time scale mismatch, bad prediction)
  2 - Command error (unreadable files, database errors)

Examples:
  pulsar residuals --model ngc6440e.cue ngc6440e.tim
  pulsar residuals --model ngc6440e.cue --subtract-mean --sort freq ngc6440e.tim
  pulsar residuals --model ngc6440e.cue --db runs.db --save-as ngc6440e ngc6440e.tim`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResiduals(cmd.Context(), opts, args[0], cmd)
		},
	}

	addComputeFlags(cmd, opts)
	cmd.Flags().IntVar(&opts.NFree, "nfree", 0, "number of fitted parameters for degrees of freedom")
	cmd.Flags().BoolVar(&opts.ShowResids, "show-resids", false, "list every residual")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to record the run in")
	cmd.Flags().StringVar(&opts.SaveAs, "save-as", "", "save the TOA table under this name (requires --db)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

// addComputeFlags registers the flags shared by residuals and watch.
func addComputeFlags(cmd *cobra.Command, opts *ResidualsOptions) {
	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "CUE spin model file (required)")
	cmd.Flags().BoolVar(&opts.SubtractMean, "subtract-mean", false, "subtract the weighted mean residual")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 1, "parallel model evaluation workers")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", fmt.Sprintf("sort TOAs first by key (%s)", strings.Join(toa.KeyNames, "|")))
	_ = cmd.MarkFlagRequired("model")
}

// stageError carries the exit and error codes of a failed pipeline stage.
type stageError struct {
	exit int
	code string
	msg  string
	err  error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.msg, e.err) }
func (e *stageError) Unwrap() error { return e.err }

// computation is one pass of the residual pipeline.
type computation struct {
	table    *toa.Table
	resids   *residuals.Residuals
	summary  residuals.Summary
	duration time.Duration
}

// compute loads the model and TOAs, optionally sorts, and computes
// residuals.
func compute(ctx context.Context, opts *ResidualsOptions, timPath string, logger *slog.Logger) (*computation, error) {
	m, err := model.LoadFile(opts.Model)
	if err != nil {
		return nil, &stageError{ExitCommandError, ErrCodeModel, "failed to load model", err}
	}

	t, err := tim.ReadFile(timPath, toa.WithScale(m.TimeScale()))
	if err != nil {
		return nil, &stageError{ExitCommandError, ErrCodeTOAs, "failed to read TOAs", err}
	}
	logger.Debug("toas loaded", "file", timPath, "toas", t.Len(), "observatories", t.Observatories())

	if opts.Sort != "" {
		key, err := toa.KeyByName(opts.Sort)
		if err != nil {
			return nil, &stageError{ExitCommandError, ErrCodeUsage, "invalid --sort", err}
		}
		t, _ = t.SortBy(key)
	}

	start := time.Now()
	r, err := residuals.Compute(ctx, t, m, residuals.Options{
		SubtractMean: opts.SubtractMean,
		Workers:      opts.Workers,
		Logger:       logger,
	})
	elapsed := time.Since(start)
	if err != nil {
		return &computation{table: t, duration: elapsed, summary: residuals.Summary{Model: m.Name()}},
			&stageError{ExitFailure, ErrCodeCompute, "failed to compute residuals", err}
	}

	s, err := r.Summarize(opts.NFree)
	if err != nil {
		return nil, &stageError{ExitFailure, ErrCodeCompute, "failed to summarize residuals", err}
	}
	return &computation{table: t, resids: r, summary: s, duration: elapsed}, nil
}

func runResiduals(ctx context.Context, opts *ResidualsOptions, timPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.SaveAs != "" && opts.Database == "" {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--save-as requires --db", nil)
	}

	var rec *metrics.Recorder
	if opts.MetricsFile != "" {
		rec = metrics.NewRecorder(metrics.DefaultNamespace)
	}

	c, err := compute(ctx, opts, timPath, logger)
	if rec != nil && c != nil {
		if err != nil {
			rec.ObserveError(c.summary.Model, c.duration)
		} else {
			rec.Observe(c.summary, c.duration)
		}
		if werr := rec.WriteTextfile(opts.MetricsFile); werr != nil {
			logger.Error("failed to write metrics", "path", opts.MetricsFile, "error", werr)
		}
	}
	if err != nil {
		return failStage(formatter, err)
	}

	out := ResidualsOutput{
		File:        timPath,
		Fingerprint: c.table.Fingerprint(),
		Sort:        opts.Sort,
		Summary:     c.summary,
	}
	if opts.ShowResids {
		out.Residuals = residualRows(c.table, c.resids)
	}

	if opts.Database != "" {
		id, err := recordRun(ctx, opts, c, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
		}
		out.RunID = id
	}

	return formatter.Success(out)
}

// failStage reports a stage error, or a generic one.
func failStage(f *OutputFormatter, err error) error {
	var se *stageError
	if errors.As(err, &se) {
		return f.Fail(se.exit, se.code, se.msg, se.err)
	}
	return f.Fail(ExitFailure, ErrCodeGeneric, "unexpected error", err)
}

func residualRows(t *toa.Table, r *residuals.Residuals) []ResidualRow {
	resids := r.TimeResids()
	rows := make([]ResidualRow, t.Len())
	for i := range rows {
		rec := t.Record(i)
		rows[i] = ResidualRow{
			Index:   i,
			Name:    rec.Name,
			MJD:     rec.MJD.String(),
			Obs:     rec.Obs,
			ResidUS: resids[i] * 1e6,
			ErrorUS: rec.ErrorUS,
		}
	}
	return rows
}

// recordRun saves the table (if named) and the run, returning the run ID.
func recordRun(ctx context.Context, opts *ResidualsOptions, c *computation, logger *slog.Logger) (string, error) {
	var storeOpts []store.Option
	if opts.RunIDs != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.RunIDs))
	}
	st, err := store.Open(opts.Database, storeOpts...)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.SaveAs != "" {
		if err := st.SaveTable(ctx, opts.SaveAs, c.table); err != nil {
			return "", err
		}
		logger.Debug("table saved", "name", opts.SaveAs, "fingerprint", c.table.Fingerprint())
	}

	run, err := store.NewRun(opts.SaveAs, c.table, c.resids, opts.NFree)
	if err != nil {
		return "", err
	}
	run, err = st.WriteRun(ctx, run)
	if err != nil {
		return "", err
	}
	logger.Info("run recorded", "id", run.ID, "seq", run.Seq, "db", opts.Database)
	return run.ID, nil
}
