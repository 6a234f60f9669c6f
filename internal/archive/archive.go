// Package archive stores generated dungeons so a seed can be shared and
// its floors reloaded without regenerating. Runs are keyed by
// strategy_seed_param_cheat; floors are kept as .bin bytes with a blake2b
// digest.
package archive

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/generator"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

var (
	// ErrDuplicateRun is returned when a run with the same key is stored.
	ErrDuplicateRun = errors.New("archive: run already stored")
	// ErrRunNotFound is returned for unknown run keys.
	ErrRunNotFound = errors.New("archive: run not found")
	// ErrCorrupt is returned when stored floor bytes no longer match their
	// digest.
	ErrCorrupt = errors.New("archive: floor digest mismatch")
	// ErrNoCatalog is returned when a dungeon does not carry its catalog.
	ErrNoCatalog = errors.New("archive: dungeon has no catalog")
)

// Run is one stored dungeon.
type Run struct {
	ID        uuid.UUID
	Key       string
	Strategy  string
	Seed      string
	Param     int
	CheatMode bool
	Floors    int
	Digest    string
	CreatedAt time.Time
}

// FloorRecord is one stored floor.
type FloorRecord struct {
	Level    int
	Strategy string
	Seed     string
	Digest   string
	Data     []byte
}

// Lattice decodes the stored .bin bytes.
func (f FloorRecord) Lattice() (*lattice.Lattice, error) {
	return export.UnmarshalBin(f.Data)
}

// Archive wraps the database connection.
type Archive struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates a SQLite archive at path.
func Open(path string) (*Archive, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the archive described by cfg and creates its schema.
func OpenWithConfig(cfg Config) (*Archive, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case *PostgresDialect:
		dsn = cfg.Postgres.DSN()
	default:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create archive directory: %w", err)
			}
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if _, ok := dialect.(*PostgresDialect); ok {
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to archive: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialise archive: %w", err)
		}
	}

	a := &Archive{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			run_key TEXT UNIQUE NOT NULL,
			strategy TEXT NOT NULL,
			seed TEXT NOT NULL,
			param INTEGER NOT NULL,
			cheat_mode INTEGER NOT NULL DEFAULT 0,
			floors INTEGER NOT NULL,
			digest TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS floors (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			level INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			seed TEXT NOT NULL,
			digest TEXT NOT NULL,
			data %s NOT NULL,
			PRIMARY KEY (run_id, level)
		)`, a.dialect.BlobType()),
		`CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed)`,
	}
	for _, m := range migrations {
		if _, err := a.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Digest is the hex blake2b-256 of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveRun stores every floor of d under its run key.
func (a *Archive) SaveRun(ctx context.Context, d *generator.Dungeon) (*Run, error) {
	if d.Catalog == nil {
		return nil, ErrNoCatalog
	}
	records := make([]FloorRecord, 0, len(d.Floors))
	runHash, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	for _, f := range d.Floors {
		data, err := export.MarshalBin(f.Lattice, d.Catalog)
		if err != nil {
			return nil, fmt.Errorf("archive: encode floor %d: %w", f.Level, err)
		}
		digest := Digest(data)
		runHash.Write([]byte(digest))
		records = append(records, FloorRecord{
			Level:    f.Level,
			Strategy: string(f.Strategy),
			Seed:     f.Seed,
			Digest:   digest,
			Data:     data,
		})
	}

	run := &Run{
		ID:        uuid.New(),
		Key:       d.Options.RunKey(),
		Strategy:  string(d.Options.Strategy),
		Seed:      d.Options.Seed,
		Param:     d.Options.Param,
		CheatMode: d.Options.CheatMode,
		Floors:    len(records),
		Digest:    hex.EncodeToString(runHash.Sum(nil)),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	cheat := 0
	if run.CheatMode {
		cheat = 1
	}
	_, err = tx.ExecContext(ctx, a.qb.Build(
		`INSERT INTO runs (id, run_key, strategy, seed, param, cheat_mode, floors, digest, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID.String(), run.Key, run.Strategy, run.Seed, run.Param, cheat, run.Floors, run.Digest, run.CreatedAt,
	)
	if err != nil {
		if a.dialect.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRun, run.Key)
		}
		return nil, fmt.Errorf("archive: insert run: %w", err)
	}

	insertFloor := a.qb.Build(`INSERT INTO floors (run_id, level, strategy, seed, digest, data) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, insertFloor, run.ID.String(), r.Level, r.Strategy, r.Seed, r.Digest, r.Data); err != nil {
			return nil, fmt.Errorf("archive: insert floor %d: %w", r.Level, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("archive: commit: %w", err)
	}
	return run, nil
}

const runColumns = `id, run_key, strategy, seed, param, cheat_mode, floors, digest, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run   Run
		id    string
		cheat int
	)
	if err := s.Scan(&id, &run.Key, &run.Strategy, &run.Seed, &run.Param, &cheat, &run.Floors, &run.Digest, &run.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("archive: run id %q: %w", id, err)
	}
	run.ID = parsed
	run.CheatMode = cheat != 0
	return &run, nil
}

// ListRuns returns every stored run, newest first.
func (a *Archive) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, run_key`)
	if err != nil {
		return nil, fmt.Errorf("archive: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("archive: scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LoadRun returns the run stored under key and its floors in level order.
// Every floor is checked against its digest.
func (a *Archive) LoadRun(ctx context.Context, key string) (*Run, []FloorRecord, error) {
	run, err := scanRun(a.db.QueryRowContext(ctx, a.qb.Build(`SELECT `+runColumns+` FROM runs WHERE run_key = ?`), key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, key)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("archive: load run: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, a.qb.Build(
		`SELECT level, strategy, seed, digest, data FROM floors WHERE run_id = ? ORDER BY level`), run.ID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("archive: load floors: %w", err)
	}
	defer rows.Close()

	var floors []FloorRecord
	for rows.Next() {
		var f FloorRecord
		if err := rows.Scan(&f.Level, &f.Strategy, &f.Seed, &f.Digest, &f.Data); err != nil {
			return nil, nil, fmt.Errorf("archive: scan floor: %w", err)
		}
		if Digest(f.Data) != f.Digest {
			return nil, nil, fmt.Errorf("%w: run %s level %d", ErrCorrupt, key, f.Level)
		}
		floors = append(floors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return run, floors, nil
}

// DeleteRun removes a run and its floors.
func (a *Archive) DeleteRun(ctx context.Context, key string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, a.qb.Build(`SELECT id FROM runs WHERE run_key = ?`), key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("archive: delete run: %w", err)
	}
	// SQLite only cascades on connections with foreign_keys enabled.
	if _, err := tx.ExecContext(ctx, a.qb.Build(`DELETE FROM floors WHERE run_id = ?`), id); err != nil {
		return fmt.Errorf("archive: delete floors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, a.qb.Build(`DELETE FROM runs WHERE id = ?`), id); err != nil {
		return fmt.Errorf("archive: delete run: %w", err)
	}
	return tx.Commit()
}
