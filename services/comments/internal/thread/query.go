package thread

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/comment-board/services/comments/internal/authors"
	"github.com/example/comment-board/services/comments/internal/store"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// View is the enriched read projection of a comment.
type View struct {
	ID           string          `json:"id"`
	Content      string          `json:"content"`
	Author       authors.Summary `json:"author"`
	ParentID     *string         `json:"parent_id"`
	Likes        []string        `json:"likes"`
	Dislikes     []string        `json:"dislikes"`
	LikeCount    int             `json:"like_count"`
	DislikeCount int             `json:"dislike_count"`
	ReplyIDs     []string        `json:"reply_ids"`
	Replies      []View          `json:"replies"`
	IsEdited     bool            `json:"is_edited"`
	EditedAt     *time.Time      `json:"edited_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

type Page struct {
	Comments   []View     `json:"comments"`
	Pagination Pagination `json:"pagination"`
}

// Query serves read operations over top-level comments and their direct
// replies.
type Query struct {
	store   store.CommentStore
	authors authors.Directory
	log     *zap.Logger
}

func NewQuery(s store.CommentStore, dir authors.Directory, log *zap.Logger) *Query {
	if dir == nil {
		dir = authors.NewStaticDirectory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Query{store: s, authors: dir, log: log}
}

// List returns one page of top-level comments ordered by sort.
func (q *Query) List(ctx context.Context, page, limit int, sort store.Sort) (Page, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	items, total, err := q.store.Query(ctx, store.Filter{TopLevel: true}, sort, (page-1)*limit, limit)
	if err != nil {
		return Page{}, storeErr("list comments", err)
	}
	views, err := q.Enrich(ctx, items)
	if err != nil {
		return Page{}, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return Page{
		Comments: views,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			Pages:   pages,
			HasNext: page < pages,
			HasPrev: page > 1,
		},
	}, nil
}

func (q *Query) GetByID(ctx context.Context, id string) (View, error) {
	c, err := q.store.Get(ctx, id)
	if err != nil {
		return View{}, storeErr("get comment", err)
	}
	views, err := q.Enrich(ctx, []store.Comment{c})
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

// Enrich attaches author summaries and one level of replies, in reply order.
// Reply ids that no longer resolve are skipped.
func (q *Query) Enrich(ctx context.Context, cs []store.Comment) ([]View, error) {
	var replyIDs []string
	for _, c := range cs {
		replyIDs = append(replyIDs, c.ReplyIDs...)
	}

	replies := map[string]store.Comment{}
	if len(replyIDs) > 0 {
		found, err := q.store.GetMany(ctx, replyIDs)
		if err != nil {
			return nil, storeErr("load replies", err)
		}
		for _, r := range found {
			replies[r.ID] = r
		}
	}

	authorIDs := make([]string, 0, len(cs)+len(replies))
	for _, c := range cs {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	for _, r := range replies {
		authorIDs = append(authorIDs, r.AuthorID)
	}
	summaries := q.lookupAuthors(ctx, authorIDs)

	out := make([]View, 0, len(cs))
	for _, c := range cs {
		v := project(c, summaries)
		for _, id := range c.ReplyIDs {
			if r, ok := replies[id]; ok {
				v.Replies = append(v.Replies, project(r, summaries))
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (q *Query) lookupAuthors(ctx context.Context, ids []string) map[string]authors.Summary {
	summaries, err := q.authors.Lookup(ctx, ids)
	if err != nil {
		q.log.Warn("author lookup failed", zap.Error(err))
		summaries = map[string]authors.Summary{}
	}
	return summaries
}

func project(c store.Comment, summaries map[string]authors.Summary) View {
	author, ok := summaries[c.AuthorID]
	if !ok {
		author = authors.Fallback(c.AuthorID)
	}
	return View{
		ID:           c.ID,
		Content:      c.Content,
		Author:       author,
		ParentID:     c.ParentID,
		Likes:        nonNil(c.LikerIDs),
		Dislikes:     nonNil(c.DislikerIDs),
		LikeCount:    len(c.LikerIDs),
		DislikeCount: len(c.DislikerIDs),
		ReplyIDs:     nonNil(c.ReplyIDs),
		Replies:      []View{},
		IsEdited:     c.IsEdited,
		EditedAt:     c.EditedAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
