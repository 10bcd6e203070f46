package authors

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads usernames from the users table owned by the auth
// service. That table carries no avatar, so one is generated from the name.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) Lookup(ctx context.Context, ids []string) (map[string]Summary, error) {
	ids = unique(ids)
	out := make(map[string]Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	const q = `SELECT id::text, username
	           FROM users
	           WHERE id::text = ANY($1)`
	rows, err := d.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.DisplayName); err != nil {
			return nil, err
		}
		out[s.ID] = complete(s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = Fallback(id)
		}
	}
	return out, nil
}
