// Package repository persists ranked score time-series into per-event
// embedded SQLite databases.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/pkg/metrics"
)

// Store owns one per-event database file. The owning region loop is the only
// writer; downstream readers open their own read-only connections.
type Store struct {
	db      *sql.DB
	path    string
	region  model.Region
	eventID int
}

// Path returns the deterministic database location for a polled id under
// root. Chapter-expanded ids get their own files next to the aggregate's.
func Path(root string, region model.Region, eventID int) string {
	return filepath.Join(root, string(region), strconv.Itoa(eventID)+".db")
}

// Open creates the file and schema on demand. The connection uses write-ahead
// journaling with relaxed durability; the supervisor guarantees orderly
// shutdown instead of per-commit fsync.
func Open(ctx context.Context, path string, region model.Region, eventID int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Single writer per file; one connection avoids db-level lock churn.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}

	return &Store{db: db, path: path, region: region, eventID: eventID}, nil
}

// EventID returns the polled id this store records.
func (s *Store) EventID() int { return s.eventID }

// Region returns the owning region.
func (s *Store) Region() model.Region { return s.region }

// Close disposes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	s.db = nil
	return nil
}

// head is the current state of one rank: the row with the greatest id.
type head struct {
	id     int64
	score  int64
	userID int64
}

// UpdateRankings applies one tick's changed rankings in a single transaction.
// Rankings whose (uid, score) matches the current head of their rank are
// rebound: the head row's time_record_id moves to this tick without a new
// row. Everything else appends a new rank_record. Returns the insert and
// rebind counts.
func (s *Store) UpdateRankings(ctx context.Context, ts time.Time, rankings []model.Ranking) (inserts, rebinds int, err error) {
	if s.db == nil {
		return 0, 0, ErrClosed
	}
	if len(rankings) == 0 {
		return 0, 0, ErrNoRankings
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var timeID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO time_record (ts) VALUES (?)
		 ON CONFLICT(ts) DO UPDATE SET ts = excluded.ts
		 RETURNING id`,
		ts.Unix(),
	).Scan(&timeID)
	if err != nil {
		return 0, 0, fmt.Errorf("insert time record: %w", err)
	}

	userIDs, err := upsertUsers(ctx, tx, rankings)
	if err != nil {
		return 0, 0, err
	}

	heads, err := resolveHeads(ctx, tx, rankings)
	if err != nil {
		return 0, 0, err
	}

	var rebindIDs []int64
	type pendingInsert struct {
		score  int64
		rank   int
		userID int64
	}
	var pending []pendingInsert
	for _, r := range rankings {
		userID := userIDs[r.UID]
		h, ok := heads[r.Rank]
		if ok && h.score == r.Score && h.userID == userID {
			rebindIDs = append(rebindIDs, h.id)
			continue
		}
		pending = append(pending, pendingInsert{score: r.Score, rank: r.Rank, userID: userID})
	}

	if len(rebindIDs) > 0 {
		args := make([]any, 0, len(rebindIDs)+1)
		args = append(args, timeID)
		for _, id := range rebindIDs {
			args = append(args, id)
		}
		query := `UPDATE rank_record SET time_record_id = ? WHERE id IN (` + placeholders(len(rebindIDs)) + `)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, 0, fmt.Errorf("rebind heads: %w", err)
		}
	}

	if len(pending) > 0 {
		var sb strings.Builder
		sb.WriteString(`INSERT INTO rank_record (score, rank, user_record_id, time_record_id) VALUES `)
		args := make([]any, 0, len(pending)*4) //nolint:mnd // four columns per row
		for i, p := range pending {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?)")
			args = append(args, p.score, p.rank, p.userID, timeID)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return 0, 0, fmt.Errorf("insert rank records: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}

	metrics.ObserveStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	return len(pending), len(rebindIDs), nil
}

// upsertUsers ensures a user_record per distinct uid, overwriting the stored
// name with the incoming one (latest-wins naming).
func upsertUsers(ctx context.Context, tx *sql.Tx, rankings []model.Ranking) (map[string]int64, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO user_record (uid, name) VALUES (?, ?)
		 ON CONFLICT(uid) DO UPDATE SET name = excluded.name
		 RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("prepare user upsert: %w", err)
	}
	defer stmt.Close()

	userIDs := make(map[string]int64, len(rankings))
	for _, r := range rankings {
		var id int64
		if err := stmt.QueryRowContext(ctx, r.UID, model.TruncateName(r.Name)).Scan(&id); err != nil {
			return nil, fmt.Errorf("upsert user %s: %w", r.UID, err)
		}
		userIDs[r.UID] = id
	}
	return userIDs, nil
}

// resolveHeads fetches the current head row per distinct incoming rank.
func resolveHeads(ctx context.Context, tx *sql.Tx, rankings []model.Ranking) (map[int]head, error) {
	seen := make(map[int]struct{}, len(rankings))
	args := make([]any, 0, len(rankings))
	for _, r := range rankings {
		if _, ok := seen[r.Rank]; ok {
			continue
		}
		seen[r.Rank] = struct{}{}
		args = append(args, r.Rank)
	}

	query := `SELECT r.rank, r.id, r.score, r.user_record_id
		FROM rank_record r
		JOIN (
			SELECT rank, MAX(id) AS head_id
			FROM rank_record
			WHERE rank IN (` + placeholders(len(args)) + `)
			GROUP BY rank
		) h ON r.id = h.head_id`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve heads: %w", err)
	}
	defer rows.Close()

	heads := make(map[int]head, len(args))
	for rows.Next() {
		var rank int
		var h head
		if err := rows.Scan(&rank, &h.id, &h.score, &h.userID); err != nil {
			return nil, fmt.Errorf("scan head: %w", err)
		}
		heads[rank] = h
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heads: %w", err)
	}
	return heads, nil
}

// Vacuum compacts the database file. Administrative, never called from the
// polling path.
func (s *Store) Vacuum(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum %s: %w", s.path, err)
	}
	return nil
}

// placeholders returns n comma-separated SQL parameter markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
