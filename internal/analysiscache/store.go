package analysiscache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clipsight/internal/config"
	"clipsight/internal/queue"
)

// Store persists completed analyses and terminal job records in SQLite.
// Live queue state is deliberately not stored here; only results that are
// useful across restarts survive.
type Store struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// Open initializes or connects to the cache database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.CacheDir, "analysis.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		path: dbPath,
		ttl:  time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		now:  time.Now,
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the cached analysis for a media ID, honoring the TTL.
// A stale row counts as a miss and is purged lazily.
func (s *Store) Lookup(ctx context.Context, mediaID string) (*queue.AnalysisReport, bool, error) {
	if mediaID == "" {
		return nil, false, nil
	}

	var payload string
	var createdAt string
	row := s.db.QueryRowContext(ctx,
		"SELECT payload, created_at FROM analysis_entries WHERE media_id = ?", mediaID)
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup analysis %s: %w", mediaID, err)
	}

	if s.ttl > 0 {
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil || s.now().UTC().Sub(created) > s.ttl {
			_, _ = s.db.ExecContext(ctx, "DELETE FROM analysis_entries WHERE media_id = ?", mediaID)
			return nil, false, nil
		}
	}

	var report queue.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, false, fmt.Errorf("decode cached analysis %s: %w", mediaID, err)
	}
	return &report, true, nil
}

// Store upserts the analysis for a media ID.
func (s *Store) Store(ctx context.Context, mediaID string, report *queue.AnalysisReport) error {
	if mediaID == "" {
		return errors.New("store analysis: media id required")
	}
	if report == nil {
		return errors.New("store analysis: report required")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode analysis %s: %w", mediaID, err)
	}
	timestamp := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_entries (media_id, payload, created_at)
         VALUES (?, ?, ?)
         ON CONFLICT(media_id) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		mediaID, string(payload), timestamp)
	if err != nil {
		return fmt.Errorf("store analysis %s: %w", mediaID, err)
	}
	return nil
}

// ArchiveJob records a terminal job snapshot. The archive is append-only
// history for operators; nothing reads it back into the live queue.
func (s *Store) ArchiveJob(ctx context.Context, snapshot queue.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode job archive %s: %w", snapshot.ID, err)
	}
	timestamp := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_archive (job_id, url, status, last_error, payload, archived_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(job_id) DO UPDATE SET
             status = excluded.status,
             last_error = excluded.last_error,
             payload = excluded.payload,
             archived_at = excluded.archived_at`,
		snapshot.ID, snapshot.URL, string(snapshot.Status), snapshot.LastError, string(payload), timestamp)
	if err != nil {
		return fmt.Errorf("archive job %s: %w", snapshot.ID, err)
	}
	return nil
}

// ArchivedJobs returns the most recent terminal jobs, newest first.
func (s *Store) ArchivedJobs(ctx context.Context, limit int) ([]queue.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM job_archive ORDER BY archived_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list job archive: %w", err)
	}
	defer rows.Close()

	var snapshots []queue.Snapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan job archive row: %w", err)
		}
		var snapshot queue.Snapshot
		if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
			return nil, fmt.Errorf("decode job archive row: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job archive: %w", err)
	}
	return snapshots, nil
}

// Prune removes analysis entries older than the TTL. Callers run it
// periodically; a zero TTL disables pruning.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.ttl).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM analysis_entries WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune analysis entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}
