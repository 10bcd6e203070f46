// Package store persists comments. Every backend exposes vote membership and
// reply edges as atomic add/remove primitives so that concurrent toggles on
// the same comment never overwrite each other.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("comment not found")

// Comment is the persisted comment document.
type Comment struct {
	ID          string     `json:"id" bson:"_id"`
	Content     string     `json:"content" bson:"content"`
	AuthorID    string     `json:"author_id" bson:"author_id"`
	ParentID    *string    `json:"parent_id" bson:"parent_id"`
	LikerIDs    []string   `json:"liker_ids" bson:"liker_ids"`
	DislikerIDs []string   `json:"disliker_ids" bson:"disliker_ids"`
	ReplyIDs    []string   `json:"reply_ids" bson:"reply_ids"`
	IsEdited    bool       `json:"is_edited" bson:"is_edited"`
	EditedAt    *time.Time `json:"edited_at,omitempty" bson:"edited_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// FieldUpdate is a partial update; nil fields are left untouched.
type FieldUpdate struct {
	Content  *string
	IsEdited *bool
	EditedAt *time.Time
}

// VoteSet names one of the two membership sets on a comment.
type VoteSet string

const (
	Likers    VoteSet = "likers"
	Dislikers VoteSet = "dislikers"
)

// Opposite returns the set that is mutually exclusive with s.
func (s VoteSet) Opposite() VoteSet {
	if s == Likers {
		return Dislikers
	}
	return Likers
}

// Sort selects the ordering of Query results.
type Sort string

const (
	SortNewest       Sort = "newest"
	SortMostLiked    Sort = "mostLiked"
	SortMostDisliked Sort = "mostDisliked"
)

// ParseSort maps a query value to a Sort, defaulting to SortNewest.
func ParseSort(v string) Sort {
	switch Sort(v) {
	case SortMostLiked, SortMostDisliked:
		return Sort(v)
	default:
		return SortNewest
	}
}

// Filter restricts Query and DeleteWhere. The zero value matches everything.
type Filter struct {
	TopLevel bool   // parent_id IS NULL
	ParentID string // parent_id = ParentID
}

// CommentStore defines the contract for comment persistence.
type CommentStore interface {
	Get(ctx context.Context, id string) (Comment, error)
	GetMany(ctx context.Context, ids []string) ([]Comment, error)
	Create(ctx context.Context, c Comment) (Comment, error)
	UpdateFields(ctx context.Context, id string, u FieldUpdate) (Comment, error)
	Delete(ctx context.Context, id string) error
	DeleteWhere(ctx context.Context, f Filter) (int64, error)
	Query(ctx context.Context, f Filter, sort Sort, offset, limit int) ([]Comment, int64, error)

	AddToSet(ctx context.Context, id string, set VoteSet, userID string) error
	RemoveFromSet(ctx context.Context, id string, set VoteSet, userID string) error
	AppendReply(ctx context.Context, parentID, childID string) error
	RemoveReply(ctx context.Context, parentID, childID string) error

	Ping(ctx context.Context) error
}

func (c Comment) matches(f Filter) bool {
	if f.TopLevel && c.ParentID != nil {
		return false
	}
	if f.ParentID != "" && (c.ParentID == nil || *c.ParentID != f.ParentID) {
		return false
	}
	return true
}

// HasVoted reports whether userID is a member of set.
func (c Comment) HasVoted(set VoteSet, userID string) bool {
	members := c.LikerIDs
	if set == Dislikers {
		members = c.DislikerIDs
	}
	for _, m := range members {
		if m == userID {
			return true
		}
	}
	return false
}
