package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresCommentStore persists comments in Postgres. Vote sets and reply
// lists live in their own tables and are folded back into Comment on read.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

// ApplySchema creates the tables and indexes when they do not exist yet.
func (s *PostgresCommentStore) ApplySchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

const selectComment = `
SELECT c.id::text, c.content, c.author_id, c.parent_id::text, c.is_edited, c.edited_at,
       c.created_at, c.updated_at,
       COALESCE(lk.ids, '{}'), COALESCE(dk.ids, '{}'), COALESCE(rp.ids, '{}')
FROM comments c
LEFT JOIN LATERAL (
    SELECT array_agg(v.user_id ORDER BY v.created_at, v.user_id) AS ids
    FROM comment_votes v WHERE v.comment_id = c.id AND v.kind = 'like'
) lk ON true
LEFT JOIN LATERAL (
    SELECT array_agg(v.user_id ORDER BY v.created_at, v.user_id) AS ids
    FROM comment_votes v WHERE v.comment_id = c.id AND v.kind = 'dislike'
) dk ON true
LEFT JOIN LATERAL (
    SELECT array_agg(r.child_id::text ORDER BY r.position) AS ids
    FROM comment_replies r WHERE r.parent_id = c.id
) rp ON true`

func voteKind(set VoteSet) string {
	if set == Dislikers {
		return "dislike"
	}
	return "like"
}

// validID filters ids Postgres would reject as uuid literals; such ids can
// never match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *PostgresCommentStore) Get(ctx context.Context, id string) (Comment, error) {
	if !validID(id) {
		return Comment{}, ErrNotFound
	}
	out, err := s.scanComments(ctx, selectComment+` WHERE c.id = $1`, id)
	if err != nil {
		return Comment{}, err
	}
	if len(out) == 0 {
		return Comment{}, ErrNotFound
	}
	return out[0], nil
}

func (s *PostgresCommentStore) GetMany(ctx context.Context, ids []string) ([]Comment, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []Comment{}, nil
	}
	rows, err := s.scanComments(ctx, selectComment+` WHERE c.id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Comment, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	out := make([]Comment, 0, len(rows))
	for _, id := range valid {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *PostgresCommentStore) Create(ctx context.Context, c Comment) (Comment, error) {
	const q = `INSERT INTO comments (id, content, author_id, parent_id)
	           VALUES ($1, $2, $3, $4)
	           RETURNING id::text, created_at, updated_at`
	var parent any
	if c.ParentID != nil {
		if !validID(*c.ParentID) {
			return Comment{}, ErrNotFound
		}
		parent = *c.ParentID
	}
	err := s.pool.QueryRow(ctx, q, uuid.New(), c.Content, c.AuthorID, parent).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Comment{}, err
	}
	c.LikerIDs = []string{}
	c.DislikerIDs = []string{}
	c.ReplyIDs = []string{}
	c.IsEdited = false
	c.EditedAt = nil
	return c, nil
}

func (s *PostgresCommentStore) UpdateFields(ctx context.Context, id string, u FieldUpdate) (Comment, error) {
	if !validID(id) {
		return Comment{}, ErrNotFound
	}
	const q = `UPDATE comments
	           SET content   = COALESCE($2, content),
	               is_edited = COALESCE($3, is_edited),
	               edited_at = COALESCE($4, edited_at),
	               updated_at = now()
	           WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, u.Content, u.IsEdited, u.EditedAt)
	if err != nil {
		return Comment{}, err
	}
	if tag.RowsAffected() == 0 {
		return Comment{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PostgresCommentStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresCommentStore) DeleteWhere(ctx context.Context, f Filter) (int64, error) {
	where, args, ok := whereClause(f)
	if !ok {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments c`+where, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresCommentStore) Query(ctx context.Context, f Filter, by Sort, offset, limit int) ([]Comment, int64, error) {
	where, args, ok := whereClause(f)
	if !ok {
		return []Comment{}, 0, nil
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM comments c`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var order string
	switch by {
	case SortMostLiked:
		order = ` ORDER BY COALESCE(cardinality(lk.ids), 0) DESC, c.created_at DESC, c.id DESC`
	case SortMostDisliked:
		order = ` ORDER BY COALESCE(cardinality(dk.ids), 0) DESC, c.created_at DESC, c.id DESC`
	default:
		order = ` ORDER BY c.created_at DESC, c.id DESC`
	}
	if offset < 0 {
		offset = 0
	}
	n := len(args)
	q := selectComment + where + order + fmt.Sprintf(` OFFSET $%d`, n+1)
	args = append(args, offset)
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, n+2)
		args = append(args, limit)
	}

	out, err := s.scanComments(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// whereClause renders f; ok is false when f can match no row.
func whereClause(f Filter) (string, []any, bool) {
	var conds []string
	var args []any
	if f.TopLevel {
		conds = append(conds, "c.parent_id IS NULL")
	}
	if f.ParentID != "" {
		if !validID(f.ParentID) {
			return "", nil, false
		}
		args = append(args, f.ParentID)
		conds = append(conds, fmt.Sprintf("c.parent_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil, true
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}

// The membership statements touch the parent row first so that a missing
// comment is reported as ErrNotFound in the same round trip.

func (s *PostgresCommentStore) AddToSet(ctx context.Context, id string, set VoteSet, userID string) error {
	const q = `WITH target AS (
	               UPDATE comments SET updated_at = now() WHERE id = $1 RETURNING id
	           ), ins AS (
	               INSERT INTO comment_votes (comment_id, kind, user_id)
	               SELECT id, $2, $3 FROM target
	               ON CONFLICT DO NOTHING
	           )
	           SELECT count(*) FROM target`
	return s.execTargeted(ctx, q, id, voteKind(set), userID)
}

func (s *PostgresCommentStore) RemoveFromSet(ctx context.Context, id string, set VoteSet, userID string) error {
	const q = `WITH target AS (
	               UPDATE comments SET updated_at = now() WHERE id = $1 RETURNING id
	           ), del AS (
	               DELETE FROM comment_votes
	               WHERE comment_id IN (SELECT id FROM target) AND kind = $2 AND user_id = $3
	           )
	           SELECT count(*) FROM target`
	return s.execTargeted(ctx, q, id, voteKind(set), userID)
}

func (s *PostgresCommentStore) AppendReply(ctx context.Context, parentID, childID string) error {
	if !validID(childID) {
		return fmt.Errorf("invalid reply id %q", childID)
	}
	const q = `WITH target AS (
	               UPDATE comments SET updated_at = now() WHERE id = $1 RETURNING id
	           ), ins AS (
	               INSERT INTO comment_replies (parent_id, child_id)
	               SELECT id, $2::uuid FROM target
	               ON CONFLICT DO NOTHING
	           )
	           SELECT count(*) FROM target`
	return s.execTargeted(ctx, q, parentID, childID)
}

func (s *PostgresCommentStore) RemoveReply(ctx context.Context, parentID, childID string) error {
	if !validID(childID) {
		return nil
	}
	const q = `WITH target AS (
	               UPDATE comments SET updated_at = now() WHERE id = $1 RETURNING id
	           ), del AS (
	               DELETE FROM comment_replies
	               WHERE parent_id IN (SELECT id FROM target) AND child_id = $2::uuid
	           )
	           SELECT count(*) FROM target`
	return s.execTargeted(ctx, q, parentID, childID)
}

func (s *PostgresCommentStore) execTargeted(ctx context.Context, q, id string, args ...any) error {
	if !validID(id) {
		return ErrNotFound
	}
	var matched int64
	if err := s.pool.QueryRow(ctx, q, append([]any{id}, args...)...).Scan(&matched); err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresCommentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresCommentStore) scanComments(ctx context.Context, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		var c Comment
		var editedAt *time.Time
		if err := rows.Scan(&c.ID, &c.Content, &c.AuthorID, &c.ParentID, &c.IsEdited, &editedAt,
			&c.CreatedAt, &c.UpdatedAt, &c.LikerIDs, &c.DislikerIDs, &c.ReplyIDs); err != nil {
			return nil, err
		}
		c.EditedAt = editedAt
		out = append(out, c)
	}
	return out, rows.Err()
}
