package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrStrikeExists   = errors.New("strike already recorded")
	ErrStrikeNotFound = errors.New("strike not found")
)

type Strike struct {
	ID        string
	GuildID   string
	UserID    string
	Count     float64
	Reason    string
	CreatedAt time.Time
	Removed   bool
}

// AddStrike records a strike and returns the member's active total before and
// after it. Strikes created before since or marked removed are not counted.
func (s *Store) AddStrike(ctx context.Context, strike Strike, since time.Time) (before, after float64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	before, err = sumStrikes(ctx, tx, strike.GuildID, strike.UserID, since)
	if err != nil {
		return 0, 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO strikes (id, guild_id, user_id, amount, reason, created_at, removed)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		ON CONFLICT(id) DO NOTHING
	`, strike.ID, strike.GuildID, strike.UserID, strike.Count, strike.Reason, strike.CreatedAt.Unix())
	if err != nil {
		return 0, 0, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	if inserted == 0 {
		err = ErrStrikeExists
		return 0, 0, err
	}

	after = before
	if strike.CreatedAt.Unix() >= since.Unix() {
		after += strike.Count
	}
	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}

func (s *Store) ActiveStrikeTotal(ctx context.Context, guildID, userID string, since time.Time) (float64, error) {
	return sumStrikes(ctx, s.db, guildID, userID, since)
}

func (s *Store) ListStrikes(ctx context.Context, guildID, userID string) ([]Strike, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, amount, reason, created_at, removed
		FROM strikes
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strikes []Strike
	for rows.Next() {
		strike, err := scanStrike(rows)
		if err != nil {
			return nil, err
		}
		strikes = append(strikes, strike)
	}
	return strikes, rows.Err()
}

func (s *Store) GetStrike(ctx context.Context, guildID, id string) (Strike, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, user_id, amount, reason, created_at, removed
		FROM strikes WHERE guild_id = $1 AND id = $2
	`, guildID, id)
	strike, err := scanStrike(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Strike{}, ErrStrikeNotFound
	}
	return strike, err
}

func (s *Store) RemoveStrike(ctx context.Context, guildID, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE strikes SET removed = 1 WHERE guild_id = $1 AND id = $2 AND removed = 0`, guildID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStrikeNotFound
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func sumStrikes(ctx context.Context, q queryer, guildID, userID string, since time.Time) (float64, error) {
	var total float64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM strikes
		WHERE guild_id = $1 AND user_id = $2 AND removed = 0 AND created_at >= $3
	`, guildID, userID, since.Unix()).Scan(&total)
	return total, err
}

func scanStrike(row scanner) (Strike, error) {
	var strike Strike
	var created int64
	var removed int
	if err := row.Scan(&strike.ID, &strike.GuildID, &strike.UserID, &strike.Count, &strike.Reason, &created, &removed); err != nil {
		return Strike{}, err
	}
	strike.CreatedAt = time.Unix(created, 0)
	strike.Removed = removed == 1
	return strike, nil
}
