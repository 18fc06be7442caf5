package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RankingRow is one stored observation joined with its user and time records.
type RankingRow struct {
	ID         int64
	UID        string
	Name       string
	Score      int64
	Rank       int
	ObservedAt time.Time
}

// Filter narrows QueryRanking. Zero values mean "no constraint".
type Filter struct {
	UID        string
	Name       string
	Ranks      []int
	Since      time.Time // inclusive lower bound on observation time
	Until      time.Time // inclusive upper bound on observation time
	Limit      int
	Descending bool
}

const baseSelect = `SELECT r.id, u.uid, u.name, r.score, r.rank, t.ts
	FROM rank_record r
	JOIN user_record u ON u.id = r.user_record_id
	JOIN time_record t ON t.id = r.time_record_id`

// QueryRanking returns stored observations matching the filter, ordered by
// row id.
func (s *Store) QueryRanking(ctx context.Context, f Filter) ([]RankingRow, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	var conds []string
	var args []any
	if f.UID != "" {
		conds = append(conds, "u.uid = ?")
		args = append(args, f.UID)
	}
	if f.Name != "" {
		conds = append(conds, "u.name = ?")
		args = append(args, f.Name)
	}
	if len(f.Ranks) > 0 {
		conds = append(conds, "r.rank IN ("+placeholders(len(f.Ranks))+")")
		for _, rank := range f.Ranks {
			args = append(args, rank)
		}
	}
	if !f.Since.IsZero() {
		conds = append(conds, "t.ts >= ?")
		args = append(args, f.Since.Unix())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "t.ts <= ?")
		args = append(args, f.Until.Unix())
	}

	query := baseSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.Descending {
		query += " ORDER BY r.id DESC"
	} else {
		query += " ORDER BY r.id ASC"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return s.queryRows(ctx, query, args...)
}

// QueryLatestRanking returns the head row for each requested rank. An empty
// ranks slice means every rank present in the store.
func (s *Store) QueryLatestRanking(ctx context.Context, ranks []int) ([]RankingRow, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	sub := `SELECT MAX(id) FROM rank_record`
	var args []any
	if len(ranks) > 0 {
		sub += ` WHERE rank IN (` + placeholders(len(ranks)) + `)`
		for _, rank := range ranks {
			args = append(args, rank)
		}
	}
	sub += ` GROUP BY rank`

	query := baseSelect + ` WHERE r.id IN (` + sub + `) ORDER BY r.rank ASC`
	return s.queryRows(ctx, query, args...)
}

// QueryFirstRankingAfter returns, per requested rank, the first stored row
// observed strictly after the given instant.
func (s *Store) QueryFirstRankingAfter(ctx context.Context, after time.Time, ranks []int) ([]RankingRow, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	sub := `SELECT MIN(r2.id)
		FROM rank_record r2
		JOIN time_record t2 ON t2.id = r2.time_record_id
		WHERE t2.ts > ?`
	args := []any{after.Unix()}
	if len(ranks) > 0 {
		sub += ` AND r2.rank IN (` + placeholders(len(ranks)) + `)`
		for _, rank := range ranks {
			args = append(args, rank)
		}
	}
	sub += ` GROUP BY r2.rank`

	query := baseSelect + ` WHERE r.id IN (` + sub + `) ORDER BY r.rank ASC`
	return s.queryRows(ctx, query, args...)
}

// QueryRanksWithInterval buckets the time axis into interval-sized windows
// and returns the first observation of each (rank, bucket).
func (s *Store) QueryRanksWithInterval(ctx context.Context, interval time.Duration, ranks []int) ([]RankingRow, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	seconds := int64(interval / time.Second)
	if seconds <= 0 {
		return nil, fmt.Errorf("interval must be at least one second")
	}

	sub := `SELECT MIN(r2.id)
		FROM rank_record r2
		JOIN time_record t2 ON t2.id = r2.time_record_id`
	var args []any
	if len(ranks) > 0 {
		sub += ` WHERE r2.rank IN (` + placeholders(len(ranks)) + `)`
		for _, rank := range ranks {
			args = append(args, rank)
		}
	}
	sub += ` GROUP BY r2.rank, t2.ts / ?`
	args = append(args, seconds)

	query := baseSelect + ` WHERE r.id IN (` + sub + `) ORDER BY r.rank ASC, r.id ASC`
	return s.queryRows(ctx, query, args...)
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]RankingRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rankings: %w", err)
	}
	defer rows.Close()

	var out []RankingRow
	for rows.Next() {
		var row RankingRow
		var ts int64
		if err := rows.Scan(&row.ID, &row.UID, &row.Name, &row.Score, &row.Rank, &ts); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		row.ObservedAt = time.Unix(ts, 0)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking rows: %w", err)
	}
	return out, nil
}
