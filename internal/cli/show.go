package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsar/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database   string
	Table      string
	ShowResids bool
}

// RunList is the show command result without a run ID.
type RunList struct {
	Runs []store.Run `json:"runs"`
}

// Text renders the output for humans.
func (l RunList) Text() string {
	if len(l.Runs) == 0 {
		return "No runs found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s  %-36s  %-16s  %-20s  %12s  %6s\n", "seq", "id", "table", "model", "chi2", "dof")
	for _, r := range l.Runs {
		table := r.Table
		if table == "" {
			table = "-"
		}
		fmt.Fprintf(&b, "%-4d  %-36s  %-16s  %-20s  %12.4f  %6d\n", r.Seq, r.ID, table, r.Model, r.Chi2, r.DOF)
	}
	return b.String()
}

// RunDetail is the show command result for one run.
type RunDetail struct {
	Run  store.Run `json:"run"`
	TOAs int       `json:"toas"`
}

// Text renders the output for humans.
func (d RunDetail) Text() string {
	r := d.Run
	var b strings.Builder
	fmt.Fprintf(&b, "run:           %s\n", r.ID)
	fmt.Fprintf(&b, "seq:           %d\n", r.Seq)
	if r.Table != "" {
		fmt.Fprintf(&b, "table:         %s\n", r.Table)
	}
	fmt.Fprintf(&b, "fingerprint:   %s\n", r.Fingerprint)
	fmt.Fprintf(&b, "model:         %s\n", r.Model)
	fmt.Fprintf(&b, "toas:          %d\n", d.TOAs)
	fmt.Fprintf(&b, "subtract mean: %t\n", r.SubtractMean)
	fmt.Fprintf(&b, "chi2:          %.6f\n", r.Chi2)
	fmt.Fprintf(&b, "dof:           %d\n", r.DOF)
	if len(r.Resids) > 0 && len(r.Resids) == len(r.Errors) {
		fmt.Fprintf(&b, "\n%5s %14s %10s\n", "#", "resid (us)", "err (us)")
		for i := range r.Resids {
			fmt.Fprintf(&b, "%5d %14.6f %10.3f\n", i, r.Resids[i]*1e6, r.Errors[i]*1e6)
		}
	}
	return b.String()
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show stored residual runs",
		Long: `Show one stored residual run, or list the runs in a database when no run
ID is given.

Examples:
  pulsar show --db runs.db
  pulsar show --db runs.db --table ngc6440e
  pulsar show --db runs.db --show-resids 0192f3e4-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runShow(cmd.Context(), opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "list only runs on this saved table")
	cmd.Flags().BoolVar(&opts.ShowResids, "show-resids", false, "include every residual")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if id == "" {
		runs, err := st.ListRuns(ctx, opts.Table)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		return formatter.Success(RunList{Runs: runs})
	}

	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("run %s not found", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	detail := RunDetail{Run: run, TOAs: len(run.Resids)}
	if !opts.ShowResids {
		detail.Run.Resids = nil
		detail.Run.Errors = nil
	}
	return formatter.Success(detail)
}
