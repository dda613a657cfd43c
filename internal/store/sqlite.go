package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/recuria/recuria/internal/engine"
	"github.com/recuria/recuria/internal/simulation"
)

// SQLStore implements Store on a database/sql handle. It runs on SQLite
// and MySQL.
type SQLStore struct {
	mu     sync.Mutex
	db     *sql.DB
	driver string
}

// Open connects to the database named by driver and dsn and initializes
// the schema. For sqlite an empty dsn uses .recuria/recuria.db under the
// working directory.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite":
		if dsn == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get working directory: %w", err)
			}
			dsn = DefaultSQLitePath(wd)
		}
		return OpenSQLite(ctx, dsn)
	case "mysql":
		return OpenMySQL(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", driver)
	}
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	return newSQLStore(ctx, db, "sqlite")
}

// OpenMySQL connects to a MySQL server. dsn uses the go-sql-driver format,
// e.g. user:pass@tcp(host:3306)/recuria.
func OpenMySQL(ctx context.Context, dsn string) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	return newSQLStore(ctx, db, "mysql")
}

func newSQLStore(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Driver returns the database driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Write saves a batch, its runs and every step in one transaction.
func (s *SQLStore) Write(ctx context.Context, b *simulation.Batch) error {
	if b.ID == "" {
		return fmt.Errorf("batch ID is required")
	}
	scenario, err := json.Marshal(b.Scenario)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	info := infoOf(b)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO batches (id, seed, started_at, finished_at, max_steps, memory_capacity, scenario)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Seed, formatTime(info.StartedAt), formatTime(info.FinishedAt),
		info.MaxSteps, info.MemoryCapacity, string(scenario)); err != nil {
		return fmt.Errorf("failed to insert batch %s: %w", b.ID, err)
	}

	stepStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps (batch_id, label, step, input_signal, decision, stability, self_eval)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stepStmt.Close()

	for _, sys := range b.Systems {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (batch_id, label, input, w_input, w_state, w_self_eval)
			VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, string(sys.Label), sys.Input,
			sys.Weights.Input, sys.Weights.State, sys.Weights.SelfEval); err != nil {
			return fmt.Errorf("failed to insert run %s/%s: %w", b.ID, sys.Label, err)
		}

		h := sys.History
		if len(sys.Signals) != h.Len() {
			return fmt.Errorf("run %s/%s: %d signals for %d steps", b.ID, sys.Label, len(sys.Signals), h.Len())
		}
		for i := 0; i < h.Len(); i++ {
			if _, err := stepStmt.ExecContext(ctx, b.ID, string(sys.Label), i,
				sys.Signals[i], h.Decisions[i], h.Stability[i], h.SelfEval[i]); err != nil {
				return fmt.Errorf("failed to insert step %d of %s/%s: %w", i, b.ID, sys.Label, err)
			}
		}
	}

	return tx.Commit()
}

// ListBatches returns stored batches, newest first.
func (s *SQLStore) ListBatches(ctx context.Context, limit int) ([]BatchInfo, error) {
	query := `SELECT id, seed, started_at, finished_at, max_steps, memory_capacity
		FROM batches ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var infos []BatchInfo
	for rows.Next() {
		var info BatchInfo
		var started, finished string
		if err := rows.Scan(&info.ID, &info.Seed, &started, &finished, &info.MaxSteps, &info.MemoryCapacity); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		info.StartedAt = parseTime(started)
		info.FinishedAt = parseTime(finished)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// LoadBatch reassembles a stored batch.
func (s *SQLStore) LoadBatch(ctx context.Context, id string) (*simulation.Batch, error) {
	var (
		b                 simulation.Batch
		started, finished string
		scenario          string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, seed, started_at, finished_at, scenario FROM batches WHERE id = ?`, id).
		Scan(&b.ID, &b.Seed, &started, &finished, &scenario)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query batch %s: %w", id, err)
	}
	b.StartedAt = parseTime(started)
	b.FinishedAt = parseTime(finished)
	if err := json.Unmarshal([]byte(scenario), &b.Scenario); err != nil {
		return nil, fmt.Errorf("failed to decode scenario of batch %s: %w", id, err)
	}

	runs, err := s.db.QueryContext(ctx,
		`SELECT label, input, w_input, w_state, w_self_eval FROM runs WHERE batch_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs of batch %s: %w", id, err)
	}
	byLabel := make(map[simulation.Label]*simulation.SystemResult)
	for runs.Next() {
		var sys simulation.SystemResult
		var label string
		if err := runs.Scan(&label, &sys.Input, &sys.Weights.Input, &sys.Weights.State, &sys.Weights.SelfEval); err != nil {
			runs.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sys.Label = simulation.Label(label)
		sys.Signals = []float64{}
		sys.History = engine.RunHistory{Decisions: []int{}, Stability: []float64{}, SelfEval: []float64{}}
		byLabel[sys.Label] = &sys
	}
	if err := runs.Err(); err != nil {
		runs.Close()
		return nil, err
	}
	runs.Close()

	steps, err := s.db.QueryContext(ctx, `
		SELECT label, input_signal, decision, stability, self_eval
		FROM steps WHERE batch_id = ? ORDER BY label, step`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps of batch %s: %w", id, err)
	}
	defer steps.Close()

	for steps.Next() {
		var label string
		var signal, stability, selfEval float64
		var decision int
		if err := steps.Scan(&label, &signal, &decision, &stability, &selfEval); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		sys, ok := byLabel[simulation.Label(label)]
		if !ok {
			return nil, fmt.Errorf("batch %s: step for unknown system %s", id, label)
		}
		sys.Signals = append(sys.Signals, signal)
		sys.History.Decisions = append(sys.History.Decisions, decision)
		sys.History.Stability = append(sys.History.Stability, stability)
		sys.History.SelfEval = append(sys.History.SelfEval, selfEval)
	}
	if err := steps.Err(); err != nil {
		return nil, err
	}

	for _, l := range simulation.Labels {
		if sys, ok := byLabel[l]; ok {
			b.Systems = append(b.Systems, *sys)
		}
	}
	return &b, nil
}

// LoadRun returns one system's history from a stored batch.
func (s *SQLStore) LoadRun(ctx context.Context, id string, label simulation.Label) (*simulation.SystemResult, error) {
	b, err := s.LoadBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	sys, ok := b.System(label)
	if !ok {
		return nil, fmt.Errorf("batch %s has no system %s", id, label)
	}
	return sys, nil
}

// DB returns the underlying database handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// timeLayout is fixed-width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
