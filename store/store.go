// Package store persists school trajectories in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/shoal/population"
)

// ErrNoRun is returned when a run id is unknown.
var ErrNoRun = errors.New("no such run")

// Store wraps a SQLite connection. It is safe for concurrent use; writes
// from concurrent replicates are serialised on one connection.
type Store struct {
	conn *sqlx.DB
}

// Run describes one replicate recorded in the store.
type Run struct {
	ID         int64          `db:"id"`
	Replicate  int            `db:"replicate"`
	Seed       int64          `db:"seed"`
	FixedSeed  bool           `db:"fixed_seed"`
	NStep      int            `db:"n_step"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
	LastStep   sql.NullInt64  `db:"last_step"`
}

// Position is the state of one school at the end of a step.
type Position struct {
	SchoolID uint32 `db:"school_id"`
	Species  string `db:"species"`
	AgeDt    int    `db:"age_dt"`
	Cell     int    `db:"cell"`
	I        int    `db:"i"`
	J        int    `db:"j"`
	Out      bool   `db:"out"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		replicate INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		fixed_seed INTEGER NOT NULL,
		n_step INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		last_step INTEGER
	);

	CREATE TABLE IF NOT EXISTS positions (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		school_id INTEGER NOT NULL,
		species TEXT NOT NULL,
		age_dt INTEGER NOT NULL,
		cell INTEGER NOT NULL,
		i INTEGER NOT NULL,
		j INTEGER NOT NULL,
		out INTEGER NOT NULL,
		PRIMARY KEY (run_id, step, school_id)
	);

	CREATE INDEX IF NOT EXISTS idx_positions_cell ON positions(run_id, step, cell);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// BeginRun records the start of a replicate and returns its run id.
func (s *Store) BeginRun(replicate int, seed int64, fixedSeed bool, nStep int) (int64, error) {
	res, err := s.conn.Exec(
		"INSERT INTO runs (replicate, seed, fixed_seed, n_step, started_at) VALUES (?, ?, ?, ?, ?)",
		replicate, seed, fixedSeed, nStep, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	return res.LastInsertId()
}

// EndRun marks a run finished after lastStep.
func (s *Store) EndRun(run int64, lastStep int) error {
	res, err := s.conn.Exec(
		"UPDATE runs SET finished_at = ?, last_step = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), lastStep, run,
	)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end run %d: %w", run, ErrNoRun)
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(run int64) (*Run, error) {
	var r Run
	err := s.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", run)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", run, ErrNoRun)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SavePositions writes the positions of one step in a single transaction.
func (s *Store) SavePositions(run int64, step int, positions []Position) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO positions
		(run_id, step, school_id, species, age_dt, cell, i, j, out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.Exec(run, step, p.SchoolID, p.Species, p.AgeDt, p.Cell, p.I, p.J, p.Out); err != nil {
			return fmt.Errorf("save position of school %d: %w", p.SchoolID, err)
		}
	}

	return tx.Commit()
}

// Positions returns the positions saved for a step, ordered by species then
// school id.
func (s *Store) Positions(run int64, step int) ([]Position, error) {
	var out []Position
	err := s.conn.Select(&out,
		`SELECT school_id, species, age_dt, cell, i, j, out FROM positions
		WHERE run_id = ? AND step = ? ORDER BY species, school_id`,
		run, step,
	)
	return out, err
}

// CellCounts returns the number of located schools per cell at a step.
func (s *Store) CellCounts(run int64, step int) (map[int]int, error) {
	rows, err := s.conn.Queryx(
		"SELECT cell, COUNT(*) FROM positions WHERE run_id = ? AND step = ? AND cell >= 0 GROUP BY cell",
		run, step,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var cell, n int
		if err := rows.Scan(&cell, &n); err != nil {
			return nil, err
		}
		out[cell] = n
	}
	return out, rows.Err()
}

// FromRecords converts population records, naming species from names.
func FromRecords(records []population.Record, names []string) []Position {
	out := make([]Position, len(records))
	for k, r := range records {
		out[k] = Position{
			SchoolID: r.ID,
			Species:  names[r.Species],
			AgeDt:    r.AgeDt,
			Cell:     r.Cell,
			I:        r.I,
			J:        r.J,
			Out:      r.Out,
		}
	}
	return out
}
