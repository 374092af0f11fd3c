// Package journal records mint attempts in a local SQLite database.
//
// Every attempt gets a row that follows it through the mint pipeline: the
// last state reached, the content identifiers it published, the token it
// replaced and the error that stopped it, if any. The journal lets the CLI
// show history and reclaim pins left behind by failed attempts.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no attempt matches.
var ErrNotFound = errors.New("journal: attempt not found")

// ErrLocked is returned when another holder owns an unexpired lock.
var ErrLocked = errors.New("journal: lock held")

// StateDone is the state recorded for attempts that minted successfully.
const StateDone = "done"

// Attempt is one journaled mint attempt.
type Attempt struct {
	ID              string
	Owner           string
	State           string
	ImageCID        string
	MetadataCID     string
	TokenURI        string
	ReplacedTokenID string
	Error           string
	Unpinned        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Progress carries the fields an attempt has learned so far. Empty fields
// leave the stored value unchanged.
type Progress struct {
	State           string
	ImageCID        string
	MetadataCID     string
	TokenURI        string
	ReplacedTokenID string
}

// Journal is a SQLite-backed log of mint attempts.
type Journal struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Open opens (creating if needed) the journal at dbPath. Use ":memory:" for
// a throwaway journal.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps in-memory databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			state TEXT NOT NULL,
			image_cid TEXT NOT NULL DEFAULT '',
			metadata_cid TEXT NOT NULL DEFAULT '',
			token_uri TEXT NOT NULL DEFAULT '',
			replaced_token_id TEXT NOT NULL DEFAULT '',
			error TEXT,
			unpinned BOOLEAN NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at);
		CREATE INDEX IF NOT EXISTS idx_attempts_owner_state ON attempts(owner, state, created_at);
		CREATE INDEX IF NOT EXISTS idx_attempts_metadata_cid ON attempts(metadata_cid);
		CREATE INDEX IF NOT EXISTS idx_attempts_image_cid ON attempts(image_cid);

		CREATE TABLE IF NOT EXISTS locks (
			key TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Journal{db: db, now: time.Now, newID: uuid.NewString}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Start records a new attempt for owner in state and returns its id.
func (j *Journal) Start(ctx context.Context, owner, state string) (string, error) {
	id := j.newID()
	ts := j.now().UnixMilli()

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO attempts (id, owner, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, owner, state, ts, ts)
	if err != nil {
		return "", fmt.Errorf("failed to insert attempt: %w", err)
	}
	return id, nil
}

// Update merges p into the attempt.
func (j *Journal) Update(ctx context.Context, id string, p Progress) error {
	result, err := j.db.ExecContext(ctx, `
		UPDATE attempts SET
			state = COALESCE(NULLIF(?, ''), state),
			image_cid = COALESCE(NULLIF(?, ''), image_cid),
			metadata_cid = COALESCE(NULLIF(?, ''), metadata_cid),
			token_uri = COALESCE(NULLIF(?, ''), token_uri),
			replaced_token_id = COALESCE(NULLIF(?, ''), replaced_token_id),
			updated_at = ?
		WHERE id = ?
	`, p.State, p.ImageCID, p.MetadataCID, p.TokenURI, p.ReplacedTokenID, j.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return expectOne(result, id)
}

// Finish records the terminal state of an attempt. errMsg is empty on
// success.
func (j *Journal) Finish(ctx context.Context, id, state, errMsg string) error {
	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}

	result, err := j.db.ExecContext(ctx, `
		UPDATE attempts SET state = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, state, errVal, j.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to finish attempt: %w", err)
	}
	return expectOne(result, id)
}

// MarkUnpinned records that the assets of an attempt were unpinned.
func (j *Journal) MarkUnpinned(ctx context.Context, id string) error {
	result, err := j.db.ExecContext(ctx, `
		UPDATE attempts SET unpinned = 1, updated_at = ? WHERE id = ?
	`, j.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark attempt unpinned: %w", err)
	}
	return expectOne(result, id)
}

const selectAttempt = `
	SELECT id, owner, state, image_cid, metadata_cid, token_uri, replaced_token_id,
		COALESCE(error, ''), unpinned, created_at, updated_at
	FROM attempts
`

// Get returns the attempt with id.
func (j *Journal) Get(ctx context.Context, id string) (*Attempt, error) {
	row := j.db.QueryRowContext(ctx, selectAttempt+" WHERE id = ?", id)
	return scanOne(row)
}

// Recent returns up to limit attempts, newest first. A non-positive limit
// returns all attempts.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	query := selectAttempt + " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}
	return attempts, nil
}

// LatestDone returns the most recent attempt for owner that reached
// StateDone.
func (j *Journal) LatestDone(ctx context.Context, owner string) (*Attempt, error) {
	row := j.db.QueryRowContext(ctx,
		selectAttempt+" WHERE owner = ? AND state = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		owner, StateDone)
	return scanOne(row)
}

// ByCID returns the newest attempt that published cid as its metadata or
// its image.
func (j *Journal) ByCID(ctx context.Context, cid string) (*Attempt, error) {
	if cid == "" {
		return nil, ErrNotFound
	}
	row := j.db.QueryRowContext(ctx,
		selectAttempt+" WHERE metadata_cid = ? OR image_cid = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		cid, cid)
	return scanOne(row)
}

// Lock claims key for ttl and returns the token that releases it. The claim
// is shared by every process using the same database file. An expired claim
// is taken over; a live one fails with ErrLocked.
func (j *Journal) Lock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	now := j.now()

	// A single upsert is atomic under SQLite's write lock.
	result, err := j.db.ExecContext(ctx, `
		INSERT INTO locks (key, token, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at
		WHERE locks.expires_at <= ?
	`, key, token, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return "", fmt.Errorf("%w: %s", ErrLocked, key)
	}
	return token, nil
}

// Unlock releases key if token still holds it.
func (j *Journal) Unlock(ctx context.Context, key, token string) error {
	if _, err := j.db.ExecContext(ctx, "DELETE FROM locks WHERE key = ? AND token = ?", key, token); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(s scanner) (*Attempt, error) {
	var a Attempt
	var created, updated int64
	err := s.Scan(
		&a.ID,
		&a.Owner,
		&a.State,
		&a.ImageCID,
		&a.MetadataCID,
		&a.TokenURI,
		&a.ReplacedTokenID,
		&a.Error,
		&a.Unpinned,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = time.UnixMilli(created)
	a.UpdatedAt = time.UnixMilli(updated)
	return &a, nil
}

func scanOne(row *sql.Row) (*Attempt, error) {
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan attempt: %w", err)
	}
	return a, nil
}

func expectOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
