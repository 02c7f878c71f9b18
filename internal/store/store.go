// Package store persists cross-validation runs in SQLite through the
// pure Go modernc.org/sqlite driver.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/cyclefeat/metrics"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/sklearn/model_selection"
)

// Store is a handle on the run database.
type Store struct {
	db *sql.DB
}

// Run is one invocation of the study.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Source    string
	Config    string
}

// FoldRecord is one evaluated fold of a pipeline.
type FoldRecord struct {
	RunID        uuid.UUID
	Pipeline     string
	Fold         int
	TrainSize    int
	TestSize     int
	FitSeconds   float64
	ScoreSeconds float64
	MAE          float64
	RMSE         float64
}

// PipelineSummary aggregates the folds of one pipeline in a run.
type PipelineSummary struct {
	Pipeline string
	Folds    int
	MeanMAE  float64
	MeanRMSE float64
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	source     TEXT NOT NULL,
	config     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS folds (
	run_id        TEXT NOT NULL,
	pipeline      TEXT NOT NULL,
	fold          INTEGER NOT NULL,
	train_size    INTEGER NOT NULL,
	test_size     INTEGER NOT NULL,
	fit_seconds   REAL NOT NULL,
	score_seconds REAL NOT NULL,
	mae           REAL NOT NULL,
	rmse          REAL NOT NULL,
	PRIMARY KEY (run_id, pipeline, fold),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_folds_pipeline ON folds(pipeline);
`

// Open opens (creating when needed) the database at path. ":memory:"
// opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// one connection keeps in-memory databases shared and serialises writes
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run with a random id.
func (s *Store) CreateRun(ctx context.Context, source, config string) (Run, error) {
	run := Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Source:    source,
		Config:    config,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, source, config) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt.Format(time.RFC3339Nano), run.Source, run.Config)
	if err != nil {
		return Run{}, errors.Wrap(err, "failed to insert run")
	}
	return run, nil
}

// Runs lists runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, source, config FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var id, started string
		var run Run
		if err := rows.Scan(&id, &started, &run.Source, &run.Config); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "invalid run id %q", id)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.Wrapf(err, "invalid run time %q", started)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordFolds stores every fold of a cross-validation result in one
// transaction.
func (s *Store) RecordFolds(ctx context.Context, runID uuid.UUID, pipeline string, res *model_selection.CVResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO folds (run_id, pipeline, fold, train_size, test_size,
		                   fit_seconds, score_seconds, mae, rmse)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, f := range res.Folds {
		mae, ok := f.Scores[metrics.NegMeanAbsoluteError]
		if !ok {
			return errors.NewValidationError("scores", "missing scorer", metrics.NegMeanAbsoluteError)
		}
		rmse, ok := f.Scores[metrics.NegRootMeanSquaredError]
		if !ok {
			return errors.NewValidationError("scores", "missing scorer", metrics.NegRootMeanSquaredError)
		}
		if _, err := stmt.ExecContext(ctx, runID.String(), pipeline, f.Fold, f.TrainSize, f.TestSize,
			f.FitTime.Seconds(), f.ScoreTime.Seconds(), -mae, -rmse); err != nil {
			return errors.Wrapf(err, "failed to insert fold %d of %s", f.Fold, pipeline)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit folds")
}

// Folds returns the fold records of a run ordered by pipeline and fold.
func (s *Store) Folds(ctx context.Context, runID uuid.UUID) ([]FoldRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pipeline, fold, train_size, test_size, fit_seconds, score_seconds, mae, rmse
		FROM folds WHERE run_id = ? ORDER BY pipeline, fold`, runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query folds")
	}
	defer rows.Close()

	var out []FoldRecord
	for rows.Next() {
		rec := FoldRecord{RunID: runID}
		if err := rows.Scan(&rec.Pipeline, &rec.Fold, &rec.TrainSize, &rec.TestSize,
			&rec.FitSeconds, &rec.ScoreSeconds, &rec.MAE, &rec.RMSE); err != nil {
			return nil, errors.Wrap(err, "failed to scan fold")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Summaries returns the mean errors per pipeline of a run, best MAE first.
func (s *Store) Summaries(ctx context.Context, runID uuid.UUID) ([]PipelineSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pipeline, COUNT(*), AVG(mae), AVG(rmse)
		FROM folds WHERE run_id = ?
		GROUP BY pipeline ORDER BY AVG(mae), pipeline`, runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query summaries")
	}
	defer rows.Close()

	var out []PipelineSummary
	for rows.Next() {
		var ps PipelineSummary
		if err := rows.Scan(&ps.Pipeline, &ps.Folds, &ps.MeanMAE, &ps.MeanRMSE); err != nil {
			return nil, errors.Wrap(err, "failed to scan summary")
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}
