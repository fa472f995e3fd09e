package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type XPEntry struct {
	GuildID   string
	UserID    string
	XP        int64
	UpdatedAt time.Time
}

// AddXP adds delta to the member's total and returns the new total.
func (s *Store) AddXP(ctx context.Context, guildID, userID string, delta int64, now time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO xp_totals (guild_id, user_id, xp, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = xp_totals.xp + excluded.xp,
			updated_at = excluded.updated_at
		RETURNING xp
	`, guildID, userID, delta, now.Unix()).Scan(&total)
	return total, err
}

func (s *Store) GetXP(ctx context.Context, guildID, userID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT xp FROM xp_totals WHERE guild_id = $1 AND user_id = $2`, guildID, userID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return total, err
}

func (s *Store) TopXP(ctx context.Context, guildID string, limit int) ([]XPEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, xp, updated_at
		FROM xp_totals
		WHERE guild_id = $1
		ORDER BY xp DESC, user_id
		LIMIT $2
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []XPEntry
	for rows.Next() {
		var entry XPEntry
		var updated int64
		if err := rows.Scan(&entry.GuildID, &entry.UserID, &entry.XP, &updated); err != nil {
			return nil, err
		}
		entry.UpdatedAt = time.Unix(updated, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// XPPosition is the 1-based leaderboard rank of a member with xp points.
func (s *Store) XPPosition(ctx context.Context, guildID string, xp int64) (int, error) {
	var ahead int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM xp_totals WHERE guild_id = $1 AND xp > $2`, guildID, xp).Scan(&ahead)
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}
