// Package store keeps Intcode programs and their run results in SQLite.
//
// Programs are content-addressed by intcode.ProgramHash and stored as CBOR
// images. Each successful run is recorded against its program together with
// the inputs it consumed, so an identical run can be served from the store.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/intcode/pkg/intcode"
)

var log = commonlog.GetLogger("intcode.store")

// ErrNotFound indicates the requested program or run doesn't exist.
var ErrNotFound = errors.New("not found")

// Hash identifies a program.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Short returns the first 12 hex digits, enough to name a program in listings.
func (h Hash) Short() string { return h.String()[:12] }

// ParseHash decodes a full hex hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash %q: %d bytes, want %d", s, len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// Run is one recorded execution.
type Run struct {
	ID      int64
	Program Hash
	Inputs  []int64
	Result  *intcode.Result
	Created time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS programs (
	hash  BLOB PRIMARY KEY,
	image BLOB NOT NULL,
	size  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	program_hash BLOB NOT NULL REFERENCES programs(hash),
	inputs       BLOB NOT NULL,
	result       BLOB NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_by_program ON runs (program_hash, inputs);
`

var inputsEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	inputsEncMode = em
}

// encodeInputs gives equal input lists equal bytes so they can be compared
// in SQL.
func encodeInputs(inputs []int64) ([]byte, error) {
	if inputs == nil {
		inputs = []int64{}
	}
	return inputsEncMode.Marshal(inputs)
}

func decodeInputs(data []byte) ([]int64, error) {
	var inputs []int64
	if err := cbor.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("decoding inputs: %w", err)
	}
	return inputs, nil
}

// Store is a handle on the database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	log.Debugf("opened store %s", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// PutProgram stores program and returns its hash. Storing a program twice
// is a no-op.
func (s *Store) PutProgram(ctx context.Context, program []int64) (Hash, error) {
	image, err := intcode.MarshalImage(program, nil)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding program: %w", err)
	}
	h, err := intcode.ProgramHash(program)
	if err != nil {
		return Hash{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO programs (hash, image, size) VALUES (?, ?, ?)",
		h[:], image, len(program),
	)
	if err != nil {
		return Hash{}, fmt.Errorf("saving program: %w", err)
	}
	return Hash(h), nil
}

// Program returns the program stored under h.
func (s *Store) Program(ctx context.Context, h Hash) ([]int64, error) {
	var image []byte
	err := s.db.QueryRowContext(ctx, "SELECT image FROM programs WHERE hash = ?", h[:]).Scan(&image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("program %s: %w", h.Short(), ErrNotFound)
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	img, err := intcode.UnmarshalImage(image)
	if err != nil {
		return nil, err
	}
	return img.Program, nil
}

// ProgramInfo summarises a stored program.
type ProgramInfo struct {
	Hash Hash
	Size int
	Runs int
}

// Programs lists stored programs, most recently stored first.
func (s *Store) Programs(ctx context.Context) ([]ProgramInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.hash, p.size, COUNT(r.id)
		FROM programs p LEFT JOIN runs r ON r.program_hash = p.hash
		GROUP BY p.hash
		ORDER BY p.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var out []ProgramInfo
	for rows.Next() {
		var (
			raw  []byte
			info ProgramInfo
		)
		if err := rows.Scan(&raw, &info.Size, &info.Runs); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		copy(info.Hash[:], raw)
		out = append(out, info)
	}
	return out, rows.Err()
}

// RecordRun stores the result of running the program h with inputs. The
// program must already be stored.
func (s *Store) RecordRun(ctx context.Context, h Hash, inputs []int64, res *intcode.Result) (int64, error) {
	in, err := encodeInputs(inputs)
	if err != nil {
		return 0, fmt.Errorf("encoding inputs: %w", err)
	}
	out, err := intcode.MarshalResult(res)
	if err != nil {
		return 0, fmt.Errorf("encoding result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM programs WHERE hash = ?", h[:]).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking program: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("program %s: %w", h.Short(), ErrNotFound)
	}
	r, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (program_hash, inputs, result, created_at) VALUES (?, ?, ?, ?)",
		h[:], in, out, s.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	log.Debugf("recorded run %d of %s", id, h.Short())
	return id, nil
}

// LookupRun returns the most recent result of running h with exactly these
// inputs, or ErrNotFound.
func (s *Store) LookupRun(ctx context.Context, h Hash, inputs []int64) (*intcode.Result, error) {
	in, err := encodeInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("encoding inputs: %w", err)
	}
	var out []byte
	err = s.db.QueryRowContext(ctx,
		"SELECT result FROM runs WHERE program_hash = ? AND inputs = ? ORDER BY id DESC LIMIT 1",
		h[:], in,
	).Scan(&out)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return intcode.UnmarshalResult(out)
}

// Runs returns the recorded runs of h, oldest first.
func (s *Store) Runs(ctx context.Context, h Hash) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, inputs, result, created_at FROM runs WHERE program_hash = ? ORDER BY id",
		h[:],
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run     = Run{Program: h}
			in, res []byte
			created int64
		)
		if err := rows.Scan(&run.ID, &in, &res, &created); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.Inputs, err = decodeInputs(in); err != nil {
			return nil, err
		}
		if run.Result, err = intcode.UnmarshalResult(res); err != nil {
			return nil, err
		}
		run.Created = time.Unix(0, created)
		out = append(out, run)
	}
	return out, rows.Err()
}
