package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/toa"
)

// TableInfo describes a saved table.
type TableInfo struct {
	Name        string `db:"name" json:"name"`
	Scale       string `db:"scale" json:"scale"`
	Fingerprint string `db:"fingerprint" json:"fingerprint"`
	TOAs        int    `db:"toa_count" json:"toas"`
}

// TableConflictError reports a save under a name already holding different
// TOAs.
type TableConflictError struct {
	Name string
	Have string
	Want string
}

func (e *TableConflictError) Error() string {
	return fmt.Sprintf("table %q already saved with fingerprint %s, not %s", e.Name, e.Have, e.Want)
}

// IsTableConflict reports whether err is a *TableConflictError.
func IsTableConflict(err error) bool {
	var ce *TableConflictError
	return errors.As(err, &ce)
}

type toaRow struct {
	TableName string          `db:"table_name"`
	Row       int             `db:"idx"`
	Name      string          `db:"name"`
	MJDDay    int64           `db:"mjd_day"`
	MJDFrac   float64         `db:"mjd_frac"`
	FreqMHz   sql.NullFloat64 `db:"freq_mhz"`
	Obs       string          `db:"obs"`
	ErrorUS   float64         `db:"error_us"`
	Flags     string          `db:"flags"`
}

// SaveTable stores t under name in row order. Saving a table equivalent to
// the one already stored under name is a no-op, and the stored row order is
// kept. A different table fails with *TableConflictError.
func (s *Store) SaveTable(ctx context.Context, name string, t *toa.Table) error {
	if name == "" {
		return fmt.Errorf("save table: name is required")
	}
	fp := t.Fingerprint()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save table: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var have string
	err = tx.GetContext(ctx, &have, `SELECT fingerprint FROM toa_tables WHERE name = ?`, name)
	switch {
	case err == nil:
		if have == fp {
			return nil
		}
		return &TableConflictError{Name: name, Have: have, Want: fp}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("save table: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO toa_tables (name, scale, fingerprint, toa_count)
		VALUES (:name, :scale, :fingerprint, :toa_count)
	`, TableInfo{Name: name, Scale: string(t.Scale()), Fingerprint: fp, TOAs: t.Len()})
	if err != nil {
		return fmt.Errorf("save table: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO toas (table_name, idx, name, mjd_day, mjd_frac, freq_mhz, obs, error_us, flags)
		VALUES (:table_name, :idx, :name, :mjd_day, :mjd_frac, :freq_mhz, :obs, :error_us, :flags)
	`)
	if err != nil {
		return fmt.Errorf("save table: prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < t.Len(); i++ {
		row, err := encodeRecord(name, i, t.Record(i))
		if err != nil {
			return fmt.Errorf("save table: row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("save table: row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save table: commit: %w", err)
	}
	return nil
}

// LoadTable reads the table saved under name, rows in saved order.
// Returns an error wrapping sql.ErrNoRows if there is none.
func (s *Store) LoadTable(ctx context.Context, name string) (*toa.Table, error) {
	var info TableInfo
	err := s.db.GetContext(ctx, &info, `
		SELECT name, scale, fingerprint, toa_count FROM toa_tables WHERE name = ?
	`, name)
	if err != nil {
		return nil, fmt.Errorf("load table %q: %w", name, err)
	}
	scale, err := toa.ParseScale(info.Scale)
	if err != nil {
		return nil, fmt.Errorf("load table %q: %w", name, err)
	}

	var rows []toaRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT table_name, idx, name, mjd_day, mjd_frac, freq_mhz, obs, error_us, flags
		FROM toas
		WHERE table_name = ?
		ORDER BY idx ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("load table %q: %w", name, err)
	}
	if len(rows) != info.TOAs {
		return nil, fmt.Errorf("load table %q: have %d rows, expected %d", name, len(rows), info.TOAs)
	}

	records := make([]toa.Record, len(rows))
	for i, row := range rows {
		rec, err := decodeRecord(row)
		if err != nil {
			return nil, fmt.Errorf("load table %q: row %d: %w", name, i, err)
		}
		records[i] = rec
	}

	t, err := toa.New(records, toa.WithScale(scale))
	if err != nil {
		return nil, fmt.Errorf("load table %q: %w", name, err)
	}
	if got := t.Fingerprint(); got != info.Fingerprint {
		return nil, fmt.Errorf("load table %q: fingerprint %s does not match stored %s", name, got, info.Fingerprint)
	}
	return t, nil
}

// ListTables returns every saved table ordered by name.
func (s *Store) ListTables(ctx context.Context) ([]TableInfo, error) {
	tables := []TableInfo{}
	err := s.db.SelectContext(ctx, &tables, `
		SELECT name, scale, fingerprint, toa_count
		FROM toa_tables
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func encodeRecord(table string, i int, r toa.Record) (toaRow, error) {
	flags := []byte("{}")
	if len(r.Flags) > 0 {
		var err error
		// encoding/json writes map keys in sorted order.
		if flags, err = json.Marshal(r.Flags); err != nil {
			return toaRow{}, err
		}
	}
	row := toaRow{
		TableName: table,
		Row:       i,
		Name:      r.Name,
		MJDDay:    r.MJD.Day,
		MJDFrac:   r.MJD.Frac,
		Obs:       r.Obs,
		ErrorUS:   r.ErrorUS,
		Flags:     string(flags),
	}
	if !math.IsInf(r.FreqMHz, 1) {
		row.FreqMHz = sql.NullFloat64{Float64: r.FreqMHz, Valid: true}
	}
	return row, nil
}

func decodeRecord(row toaRow) (toa.Record, error) {
	r := toa.Record{
		Name:    row.Name,
		MJD:     mjd.Time{Day: row.MJDDay, Frac: row.MJDFrac},
		FreqMHz: math.Inf(1),
		Obs:     row.Obs,
		ErrorUS: row.ErrorUS,
	}
	if row.FreqMHz.Valid {
		r.FreqMHz = row.FreqMHz.Float64
	}
	var flags map[string]string
	if err := json.Unmarshal([]byte(row.Flags), &flags); err != nil {
		return toa.Record{}, fmt.Errorf("decode flags: %w", err)
	}
	if len(flags) > 0 {
		r.Flags = flags
	}
	return r, nil
}
