package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pulsar/internal/residuals"
	"github.com/roach88/pulsar/internal/toa"
)

// Run is a stored residual computation.
type Run struct {
	ID           string    `json:"id"`
	Table        string    `json:"table,omitempty"`
	Fingerprint  string    `json:"fingerprint"`
	Model        string    `json:"model"`
	SubtractMean bool      `json:"subtract_mean"`
	Mean         float64   `json:"mean_s"`
	Chi2         float64   `json:"chi2"`
	DOF          int       `json:"dof"`
	Seq          int64     `json:"seq"`
	Resids       []float64 `json:"resids_s,omitempty"`
	Errors       []float64 `json:"errors_s,omitempty"`
}

type runRow struct {
	ID           string         `db:"id"`
	Table        sql.NullString `db:"table_name"`
	Fingerprint  string         `db:"fingerprint"`
	Model        string         `db:"model"`
	SubtractMean bool           `db:"subtract_mean"`
	Mean         float64        `db:"mean_s"`
	Chi2         float64        `db:"chi2"`
	DOF          int            `db:"dof"`
	Seq          int64          `db:"seq"`
}

type valueRow struct {
	RunID  string  `db:"run_id"`
	Row    int     `db:"idx"`
	Resid  float64 `db:"resid_s"`
	ErrorS float64 `db:"error_s"`
}

func (r runRow) run() Run {
	return Run{
		ID:           r.ID,
		Table:        r.Table.String,
		Fingerprint:  r.Fingerprint,
		Model:        r.Model,
		SubtractMean: r.SubtractMean,
		Mean:         r.Mean,
		Chi2:         r.Chi2,
		DOF:          r.DOF,
		Seq:          r.Seq,
	}
}

// NewRun builds a run for residuals r computed from t, with degrees of
// freedom for nfree fitted parameters. table names the saved table, or is
// empty for an unsaved one.
func NewRun(table string, t *toa.Table, r *residuals.Residuals, nfree int) (Run, error) {
	if t.Len() != r.Len() {
		return Run{}, fmt.Errorf("new run: %d residuals for %d toas", r.Len(), t.Len())
	}
	chi2, err := r.Chi2()
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	return Run{
		Table:        table,
		Fingerprint:  t.Fingerprint(),
		Model:        r.ModelName(),
		SubtractMean: r.MeanSubtracted(),
		Mean:         r.Mean(),
		Chi2:         chi2,
		DOF:          r.DOF(nfree),
		Resids:       r.TimeResids(),
		Errors:       r.Errors(),
	}, nil
}

// WriteRun stores run and its residual values in one transaction. An empty
// ID is filled from the store's generator; Seq is always assigned here.
// Returns the run as stored.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if len(run.Resids) != len(run.Errors) {
		return Run{}, fmt.Errorf("write run: %d residuals but %d errors", len(run.Resids), len(run.Errors))
	}
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.GetContext(ctx, &run.Seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM residual_runs`); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	row := runRow{
		ID:           run.ID,
		Table:        sql.NullString{String: run.Table, Valid: run.Table != ""},
		Fingerprint:  run.Fingerprint,
		Model:        run.Model,
		SubtractMean: run.SubtractMean,
		Mean:         run.Mean,
		Chi2:         run.Chi2,
		DOF:          run.DOF,
		Seq:          run.Seq,
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO residual_runs
		(id, table_name, fingerprint, model, subtract_mean, mean_s, chi2, dof, seq)
		VALUES (:id, :table_name, :fingerprint, :model, :subtract_mean, :mean_s, :chi2, :dof, :seq)
	`, row)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO residual_values (run_id, idx, resid_s, error_s)
		VALUES (:run_id, :idx, :resid_s, :error_s)
	`)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: prepare: %w", run.ID, err)
	}
	defer stmt.Close()

	for i := range run.Resids {
		v := valueRow{RunID: run.ID, Row: i, Resid: run.Resids[i], ErrorS: run.Errors[i]}
		if _, err := stmt.ExecContext(ctx, v); err != nil {
			return Run{}, fmt.Errorf("write run %s: row %d: %w", run.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return run, nil
}

// ReadRun retrieves a run and its residual values by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, table_name, fingerprint, model, subtract_mean, mean_s, chi2, dof, seq
		FROM residual_runs
		WHERE id = ?
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	var values []valueRow
	err = s.db.SelectContext(ctx, &values, `
		SELECT run_id, idx, resid_s, error_s
		FROM residual_values
		WHERE run_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s values: %w", id, err)
	}

	run := row.run()
	run.Resids = make([]float64, len(values))
	run.Errors = make([]float64, len(values))
	for i, v := range values {
		run.Resids[i] = v.Resid
		run.Errors[i] = v.ErrorS
	}
	return run, nil
}

// ListRuns returns runs without their values, ordered by seq ASC, id ASC
// COLLATE BINARY. An empty table lists every run.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context, table string) ([]Run, error) {
	query := `
		SELECT id, table_name, fingerprint, model, subtract_mean, mean_s, chi2, dof, seq
		FROM residual_runs
	`
	var args []any
	if table != "" {
		query += ` WHERE table_name = ?`
		args = append(args, table)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.run())
	}
	return runs, nil
}
