package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Config controls the invocation log.
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Entry records one handled protocol message.
type Entry struct {
	RequestID string
	Method    string
	Tool      string
	IsError   bool
	LatencyMs int64
	Origin    string
	CreatedAt time.Time
}

// QueryOpts filters Query results.
type QueryOpts struct {
	Method string
	Tool   string
	Since  time.Time
	Limit  int
}

// Stat is an aggregate invocation count for one tool on one day.
type Stat struct {
	Tool  string
	Day   string
	Count int64
}

// Logger writes and queries invocation entries in a dedicated SQLite
// database. A nil Logger is safe to use and records nothing.
type Logger struct {
	db   *sql.DB
	cfg  Config
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the invocation log database and creates the schema.
func New(cfg Config) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS invocation_log (
		request_id TEXT PRIMARY KEY,
		method     TEXT NOT NULL,
		tool       TEXT,
		is_error   INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER,
		origin     TEXT,
		created_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_invocation_tool ON invocation_log(tool)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_invocation_created ON invocation_log(created_at)`)
	return err
}

// Log inserts one entry.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if l == nil || l.db == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO invocation_log
		(request_id, method, tool, is_error, latency_ms, origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.Method, entry.Tool, entry.IsError,
		entry.LatencyMs, entry.Origin, entry.CreatedAt,
	)
	return err
}

// Query returns entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts QueryOpts) ([]Entry, error) {
	q := `SELECT request_id, method, tool, is_error, latency_ms, origin, created_at
		FROM invocation_log WHERE 1=1`
	var args []any

	if opts.Method != "" {
		q += " AND method = ?"
		args = append(args, opts.Method)
	}
	if opts.Tool != "" {
		q += " AND tool = ?"
		args = append(args, opts.Tool)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query invocation log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var tool, origin sql.NullString
		var latency sql.NullInt64
		if err := rows.Scan(
			&e.RequestID, &e.Method, &tool, &e.IsError,
			&latency, &origin, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invocation row: %w", err)
		}
		e.Tool = tool.String
		e.Origin = origin.String
		e.LatencyMs = latency.Int64
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns invocation counts grouped by tool and day.
func (l *Logger) Stats(ctx context.Context) ([]Stat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT coalesce(tool, ''), date(created_at) as day, count(*) as cnt
		 FROM invocation_log GROUP BY tool, day ORDER BY day DESC, tool`)
	if err != nil {
		return nil, fmt.Errorf("invocation stats: %w", err)
	}
	defer rows.Close()

	var stats []Stat
	for rows.Next() {
		var s Stat
		var day sql.NullString
		if err := rows.Scan(&s.Tool, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan invocation stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM invocation_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("invocation log cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
