// ============================================================================
// VALUE-TABLE SNAPSHOT STORE
// ============================================================================
//
// Persists per-core value tables to SQLite so a later run can warm-start.
//
// Schema:
//   snapshots      one row per saved table: core, time, learning parameters,
//                  row count and a sha3-256 digest of the encoded rows
//   snapshot_rows  (snapshot_id, ord) -> encoded state key, encoded values
//
// Row encoding (little-endian, 89 bytes, also the digest input):
//   [0:8]   pc
//   [8]     delta count
//   [9:41]  4 × int64 deltas
//   [41:89] 6 × float64 values
//
// Rows keep the engine's snapshot order (most recently used first), so a
// restore reproduces the bounded table's eviction order.
// ============================================================================

package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/sha3"

	"rlpf/action"
	"rlpf/engine"
	"rlpf/state"
)

var (
	// ErrNoSnapshot reports a missing snapshot id or a core with no snapshots.
	ErrNoSnapshot = errors.New("no snapshot")

	// ErrDigestMismatch reports rows that no longer hash to the stored digest.
	ErrDigestMismatch = errors.New("snapshot digest mismatch")
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	core      INTEGER NOT NULL,
	created   INTEGER NOT NULL,
	alpha     REAL    NOT NULL,
	gamma     REAL    NOT NULL,
	epsilon   REAL    NOT NULL,
	queue     INTEGER NOT NULL,
	successor TEXT    NOT NULL,
	row_count INTEGER NOT NULL,
	digest    BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_core ON snapshots(core, id);
CREATE TABLE IF NOT EXISTS snapshot_rows (
	snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
	ord         INTEGER NOT NULL,
	state_key   BLOB    NOT NULL,
	vals        BLOB    NOT NULL,
	PRIMARY KEY (snapshot_id, ord)
);`

const (
	keySize = 8 + 1 + state.Depth*8
	valSize = action.Count * 8
)

// Meta describes a stored snapshot.
type Meta struct {
	ID      int64
	Core    int
	Created time.Time
	Params  engine.Params
	Count   int
	Digest  [32]byte
}

// Snapshot is a stored value table.
type Snapshot struct {
	Meta
	Rows []engine.Row
}

// Store is a snapshot database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save writes rows as a new snapshot of core in one transaction and returns its id.
func (s *Store) Save(ctx context.Context, core int, p engine.Params, rows []engine.Row) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	h := sha3.New256()
	keys := make([][]byte, len(rows))
	vals := make([][]byte, len(rows))
	for i := range rows {
		keys[i], vals[i] = encodeRow(&rows[i])
		h.Write(keys[i])
		h.Write(vals[i])
	}
	digest := h.Sum(nil)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (core, created, alpha, gamma, epsilon, queue, successor, row_count, digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		core, time.Now().UnixNano(), p.Alpha, p.Gamma, p.Epsilon, p.Queue, p.Successor, len(rows), digest)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_rows (snapshot_id, ord, state_key, vals) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, id, i, keys[i], vals[i]); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Load reads snapshot id and verifies its digest.
func (s *Store) Load(ctx context.Context, id int64) (Snapshot, error) {
	var snap Snapshot
	meta, err := s.meta(ctx, id)
	if err != nil {
		return snap, err
	}
	snap.Meta = meta

	rs, err := s.db.QueryContext(ctx, `SELECT state_key, vals FROM snapshot_rows WHERE snapshot_id = ? ORDER BY ord`, id)
	if err != nil {
		return snap, err
	}
	defer rs.Close()

	h := sha3.New256()
	snap.Rows = make([]engine.Row, 0, meta.Count)
	for rs.Next() {
		var key, vals []byte
		if err := rs.Scan(&key, &vals); err != nil {
			return snap, err
		}
		row, ok := decodeRow(key, vals)
		if !ok {
			return snap, fmt.Errorf("%w: row %d has bad encoding", ErrDigestMismatch, len(snap.Rows))
		}
		h.Write(key)
		h.Write(vals)
		snap.Rows = append(snap.Rows, row)
	}
	if err := rs.Err(); err != nil {
		return snap, err
	}

	var sum [32]byte
	h.Sum(sum[:0])
	if len(snap.Rows) != meta.Count || sum != meta.Digest {
		return snap, fmt.Errorf("%w: snapshot %d", ErrDigestMismatch, id)
	}
	return snap, nil
}

// Latest returns the id of core's newest snapshot.
func (s *Store) Latest(ctx context.Context, core int) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM snapshots WHERE core = ? ORDER BY id DESC LIMIT 1`, core).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w for core %d", ErrNoSnapshot, core)
	}
	return id, err
}

// List returns every snapshot's metadata, oldest first.
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT `+metaColumns+` FROM snapshots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []Meta
	for rs.Next() {
		m, err := scanMeta(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rs.Err()
}

const metaColumns = `id, core, created, alpha, gamma, epsilon, queue, successor, row_count, digest`

type scanner interface {
	Scan(dest ...any) error
}

func scanMeta(sc scanner) (Meta, error) {
	var (
		m       Meta
		created int64
		digest  []byte
	)
	err := sc.Scan(&m.ID, &m.Core, &created, &m.Params.Alpha, &m.Params.Gamma, &m.Params.Epsilon,
		&m.Params.Queue, &m.Params.Successor, &m.Count, &digest)
	if err != nil {
		return m, err
	}
	m.Created = time.Unix(0, created)
	copy(m.Digest[:], digest)
	return m, nil
}

func (s *Store) meta(ctx context.Context, id int64) (Meta, error) {
	m, err := scanMeta(s.db.QueryRowContext(ctx, `SELECT `+metaColumns+` FROM snapshots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("%w: id %d", ErrNoSnapshot, id)
	}
	return m, err
}

// ============================================================================
// ROW ENCODING
// ============================================================================

func encodeRow(r *engine.Row) (key, vals []byte) {
	key = make([]byte, keySize)
	binary.LittleEndian.PutUint64(key[0:8], r.State.PC)
	key[8] = r.State.Len
	for i, d := range r.State.Deltas {
		binary.LittleEndian.PutUint64(key[9+i*8:], uint64(d))
	}
	vals = make([]byte, valSize)
	for i, v := range r.Values {
		binary.LittleEndian.PutUint64(vals[i*8:], math.Float64bits(v))
	}
	return key, vals
}

func decodeRow(key, vals []byte) (engine.Row, bool) {
	var r engine.Row
	if len(key) != keySize || len(vals) != valSize || key[8] > state.Depth {
		return r, false
	}
	r.State.PC = binary.LittleEndian.Uint64(key[0:8])
	r.State.Len = key[8]
	for i := range r.State.Deltas {
		r.State.Deltas[i] = int64(binary.LittleEndian.Uint64(key[9+i*8:]))
	}
	for i := range r.Values {
		r.Values[i] = math.Float64frombits(binary.LittleEndian.Uint64(vals[i*8:]))
	}
	return r, true
}
