/*
Package sqlite provides a SQLite-backed ClientStore.

PURPOSE:
  Keeps each client as one JSON document, the same shape the Firestore
  store writes, with the name columns lifted out for ordering. Patches from
  billing.Apply are merged into the stored document inside a transaction.

INTERFACES IMPLEMENTED:
  billing.ClientStore: Client documents
  api.RunLog:          Scheduled job bookkeeping (job_runs)

KEY TABLES:
  clients:  id, name columns, doc (JSON), timestamps
  job_runs: One row per scheduled job per day

WRITE SEMANTICS:
  - Save replaces the document
  - ApplyPatch reads, merges and writes in one transaction, so array
    appends never drop concurrent appends made through this store
  - Deleting a client removes its document only; job runs are kept

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/collections.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - billing/store.go: ClientStore interface
  - billing/patch.go: MergePatch
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/collections-engine/billing"
)

// Store implements billing.ClientStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		last_name TEXT NOT NULL,
		first_name TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_name
		ON clients(last_name COLLATE NOCASE, first_name COLLATE NOCASE);

	-- Scheduled jobs (follow-up digest); one completed row per job and day
	CREATE TABLE IF NOT EXISTS job_runs (
		id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		run_date TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		completed_at TEXT NOT NULL,
		UNIQUE(job, run_date)
	);

	CREATE INDEX IF NOT EXISTS idx_job_runs_job
		ON job_runs(job, run_date DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENT STORE (billing.ClientStore interface)
// =============================================================================

// Create inserts a new client, assigning an id when it has none.
func (s *Store) Create(ctx context.Context, c billing.Client) (billing.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	doc, err := billing.EncodeClient(c)
	if err != nil {
		return billing.Client{}, fmt.Errorf("failed to encode client: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clients (id, last_name, first_name, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.LastName, c.FirstName, string(doc), c.CreatedAt.UTC().Format(time.RFC3339), now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.Client{}, fmt.Errorf("client %s already exists", c.ID)
		}
		return billing.Client{}, fmt.Errorf("failed to insert client: %w", err)
	}
	return c, nil
}

// Get returns one client.
func (s *Store) Get(ctx context.Context, id string) (billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := loadDoc(ctx, s.db, id)
	if err != nil {
		return billing.Client{}, err
	}
	return decode(id, doc)
}

// List returns every client ordered by name.
func (s *Store) List(ctx context.Context) ([]billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc FROM clients
		ORDER BY last_name COLLATE NOCASE, first_name COLLATE NOCASE, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients := []billing.Client{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		c, err := decode(id, []byte(doc))
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// NOCASE ordering in SQLite is ASCII-only; keep the shared ordering exact
	billing.SortByName(clients)
	return clients, nil
}

// Save replaces the client's document.
func (s *Store) Save(ctx context.Context, c billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := billing.EncodeClient(c)
	if err != nil {
		return fmt.Errorf("failed to encode client: %w", err)
	}
	return writeDoc(ctx, s.db, c.ID, doc, c.LastName, c.FirstName)
}

// ApplyPatch merges the patch into the stored document atomically.
func (s *Store) ApplyPatch(ctx context.Context, id string, p billing.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := loadDoc(ctx, tx, id)
	if err != nil {
		return err
	}
	if p.IsEmpty() {
		return nil
	}

	merged, err := billing.MergePatch(doc, p)
	if err != nil {
		return fmt.Errorf("patch client %s: %w", id, err)
	}
	c, err := decode(id, merged)
	if err != nil {
		return err
	}
	if err := writeDoc(ctx, tx, id, merged, c.LastName, c.FirstName); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the client.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete client %s: %w", id, billing.ErrClientNotFound)
	}
	return nil
}

// Reset deletes all clients and job runs.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM clients; DELETE FROM job_runs;")
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func loadDoc(ctx context.Context, db queryer, id string) ([]byte, error) {
	var doc string
	err := db.QueryRowContext(ctx, "SELECT doc FROM clients WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %s: %w", id, billing.ErrClientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return []byte(doc), nil
}

func writeDoc(ctx context.Context, db execer, id string, doc []byte, lastName, firstName string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE clients SET doc = ?, last_name = ?, first_name = ?, updated_at = ?
		WHERE id = ?
	`, string(doc), lastName, firstName, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to write client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("write client %s: %w", id, billing.ErrClientNotFound)
	}
	return nil
}

func decode(id string, doc []byte) (billing.Client, error) {
	c, err := billing.DecodeClient(doc)
	if err != nil {
		return billing.Client{}, fmt.Errorf("client %s: %w", id, err)
	}
	c.ID = id
	return c, nil
}

// =============================================================================
// JOB RUNS
// =============================================================================

// JobRun records one completed run of a scheduled job.
type JobRun struct {
	ID          string       `json:"id"`
	Job         string       `json:"job"`
	RunDate     billing.Date `json:"runDate"`
	Status      string       `json:"status"`
	Detail      string       `json:"detail,omitempty"`
	CompletedAt time.Time    `json:"completedAt"`
}

// CompleteJob records that job ran for day. A second run on the same day
// overwrites the detail.
func (s *Store) CompleteJob(ctx context.Context, job string, day billing.Date, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job, run_date, status, detail, completed_at)
		VALUES (?, ?, ?, 'completed', ?, ?)
		ON CONFLICT(job, run_date) DO UPDATE SET
			detail = excluded.detail,
			completed_at = excluded.completed_at
	`, uuid.NewString(), job, day.String(), detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}
	return nil
}

// JobCompleted reports whether job already ran for day.
func (s *Store) JobCompleted(ctx context.Context, job string, day billing.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM job_runs WHERE job = ? AND run_date = ? AND status = 'completed'",
		job, day.String(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// JobRuns returns the most recent runs of job, newest first.
func (s *Store) JobRuns(ctx context.Context, job string, limit int) ([]JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job, run_date, status, detail, completed_at
		FROM job_runs
		WHERE job = ?
		ORDER BY run_date DESC
		LIMIT ?
	`, job, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		var r JobRun
		var runDate, completedAt string
		var detail sql.NullString
		if err := rows.Scan(&r.ID, &r.Job, &runDate, &r.Status, &detail, &completedAt); err != nil {
			return nil, err
		}
		r.RunDate, _ = billing.ParseDate(runDate)
		r.Detail = detail.String
		r.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ billing.ClientStore = (*Store)(nil)
