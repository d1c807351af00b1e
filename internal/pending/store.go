package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultFilename is used when a recording arrives without a name.
const DefaultFilename = "recording.webm"

// ErrStorageUnavailable marks any failure of the local database. Callers
// must treat the recording as not saved.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// ErrEmptyRecording rejects a blob with no audio. Nothing is written.
var ErrEmptyRecording = errors.New("recording is empty")

// Upload is one queued recording.
type Upload struct {
	ID        string
	Blob      []byte
	Filename  string
	Size      int64
	CreatedAt time.Time
}

// Entry is the metadata of a queued recording without its audio.
type Entry struct {
	ID        string
	Filename  string
	Size      int64
	CreatedAt time.Time
}

// Store persists pending uploads in SQLite.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

// Open creates or opens the pending-upload database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: database path required", ErrStorageUnavailable)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorageUnavailable, err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY between goroutines.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle. Further calls fail with
// ErrStorageUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Save stores blob and returns the new entry id.
func (s *Store) Save(ctx context.Context, blob []byte, filename string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", ErrEmptyRecording
	}
	if strings.TrimSpace(filename) == "" {
		filename = DefaultFilename
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_uploads (id, filename, size, blob, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, filename, len(blob), blob, s.now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: save recording: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

// ListAll returns every queued recording, oldest first.
func (s *Store) ListAll(ctx context.Context) ([]Upload, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, size, blob, created_at FROM pending_uploads ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list recordings: %v", ErrStorageUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Upload
	for rows.Next() {
		var u Upload
		var created int64
		if err := rows.Scan(&u.ID, &u.Filename, &u.Size, &u.Blob, &created); err != nil {
			return nil, fmt.Errorf("%w: scan recording: %v", ErrStorageUnavailable, err)
		}
		u.CreatedAt = time.Unix(0, created)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list recordings: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// Entries lists queued recordings without loading their audio.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, size, created_at FROM pending_uploads ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list recordings: %v", ErrStorageUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Filename, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("%w: scan recording: %v", ErrStorageUnavailable, err)
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list recordings: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// Count returns the number of queued recordings.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_uploads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count recordings: %v", ErrStorageUnavailable, err)
	}
	return n, nil
}

// Delete removes the entry with id. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_uploads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete recording: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) ready() error {
	if s == nil {
		return fmt.Errorf("%w: store is nil", ErrStorageUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrStorageUnavailable)
	}
	return nil
}
