// Package repo reads and writes the run archive: completed runs and their
// record streams, stored verbatim so reads reproduce export output exactly.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"careline/internal/domain"
	"careline/internal/sim"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// RunSummary is the archive row for one completed run.
type RunSummary struct {
	ID            string `json:"id"`
	CreatedAt     string `json:"created_at" format:"date-time"`
	Seed          int64  `json:"seed"`
	StartDate     string `json:"start_date"`
	Months        int    `json:"months"`
	MessageCount  int    `json:"message_count"`
	DecisionCount int    `json:"decision_count"`
	TestCount     int    `json:"test_count"`
}

// SaveRun archives a run summary plus all of its records in one transaction.
// Records keep their emission order via an explicit sequence column.
func (r Repo) SaveRun(ctx context.Context, run RunSummary, res *sim.Result) error {
	metrics, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id,created_at,seed,start_date,months,message_count,decision_count,test_count,metrics_json) VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.CreatedAt, run.Seed, run.StartDate, run.Months,
		res.Metrics.MessageCount, res.Metrics.DecisionCount, res.Metrics.TestCount, string(metrics)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for i, m := range res.Messages {
		if err := insertRecord(ctx, tx, "messages", run.ID, i, m.ID, m.TS, m); err != nil {
			return err
		}
	}
	for i, d := range res.Decisions {
		if err := insertRecord(ctx, tx, "decisions", run.ID, i, d.ID, d.TS, d); err != nil {
			return err
		}
	}
	for i, t := range res.Tests {
		if err := insertRecord(ctx, tx, "tests", run.ID, i, t.ID, t.TS, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertRecord(ctx context.Context, tx *sql.Tx, table, runID string, seq int, id, ts string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", table, err)
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(run_id,seq,id,ts,payload) VALUES (?,?,?,?,?)`, table),
		runID, seq, id, ts, string(payload))
	if err != nil {
		return fmt.Errorf("insert %s record: %w", table, err)
	}
	return nil
}

func scanRun(row *sql.Row) (RunSummary, error) {
	var run RunSummary
	err := row.Scan(&run.ID, &run.CreatedAt, &run.Seed, &run.StartDate, &run.Months,
		&run.MessageCount, &run.DecisionCount, &run.TestCount)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	return run, err
}

const runColumns = `id,created_at,seed,start_date,months,message_count,decision_count,test_count`

// GetRun returns one archived run summary.
func (r Repo) GetRun(ctx context.Context, id string) (RunSummary, error) {
	return scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
}

// LatestRun returns the most recently archived run.
func (r Repo) LatestRun(ctx context.Context) (RunSummary, error) {
	return scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`))
}

// ListRuns returns all archived runs, newest first.
func (r Repo) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.Seed, &run.StartDate, &run.Months,
			&run.MessageCount, &run.DecisionCount, &run.TestCount); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func payloads(ctx context.Context, db *sql.DB, table, runID string) ([][]byte, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE run_id=? ORDER BY seq`, table), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Messages returns a run's message stream in emission order.
func (r Repo) Messages(ctx context.Context, runID string) ([]domain.Message, error) {
	raw, err := payloads(ctx, r.DB, "messages", runID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, len(raw))
	for i, p := range raw {
		if err := json.Unmarshal(p, &out[i]); err != nil {
			return nil, fmt.Errorf("decode message %d: %w", i, err)
		}
	}
	return out, nil
}

// Decisions returns a run's decision stream in emission order.
func (r Repo) Decisions(ctx context.Context, runID string) ([]domain.Decision, error) {
	raw, err := payloads(ctx, r.DB, "decisions", runID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Decision, len(raw))
	for i, p := range raw {
		if err := json.Unmarshal(p, &out[i]); err != nil {
			return nil, fmt.Errorf("decode decision %d: %w", i, err)
		}
	}
	return out, nil
}

// Tests returns a run's test stream in emission order.
func (r Repo) Tests(ctx context.Context, runID string) ([]domain.Test, error) {
	raw, err := payloads(ctx, r.DB, "tests", runID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Test, len(raw))
	for i, p := range raw {
		if err := json.Unmarshal(p, &out[i]); err != nil {
			return nil, fmt.Errorf("decode test %d: %w", i, err)
		}
	}
	return out, nil
}

// Metrics returns a run's archived metrics document.
func (r Repo) Metrics(ctx context.Context, runID string) (sim.Metrics, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT metrics_json FROM runs WHERE id=?`, runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return sim.Metrics{}, ErrNotFound
	}
	if err != nil {
		return sim.Metrics{}, err
	}
	var m sim.Metrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return sim.Metrics{}, fmt.Errorf("decode metrics: %w", err)
	}
	return m, nil
}

// Result reassembles the full run result from the archive.
func (r Repo) Result(ctx context.Context, runID string) (*sim.Result, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	messages, err := r.Messages(ctx, runID)
	if err != nil {
		return nil, err
	}
	decisions, err := r.Decisions(ctx, runID)
	if err != nil {
		return nil, err
	}
	tests, err := r.Tests(ctx, runID)
	if err != nil {
		return nil, err
	}
	metrics, err := r.Metrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &sim.Result{Messages: messages, Decisions: decisions, Tests: tests, Metrics: metrics}, nil
}
