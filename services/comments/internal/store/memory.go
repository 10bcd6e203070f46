package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]Comment
	now      func() time.Time
	// lastCreated keeps creation timestamps strictly increasing so the
	// newest sort is deterministic even on coarse clocks.
	lastCreated time.Time
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments: make(map[string]Comment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func clone(c Comment) Comment {
	c.LikerIDs = slices.Clone(c.LikerIDs)
	c.DislikerIDs = slices.Clone(c.DislikerIDs)
	c.ReplyIDs = slices.Clone(c.ReplyIDs)
	if c.ParentID != nil {
		pid := *c.ParentID
		c.ParentID = &pid
	}
	if c.EditedAt != nil {
		at := *c.EditedAt
		c.EditedAt = &at
	}
	return c
}

func (s *InMemoryCommentStore) Get(_ context.Context, id string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemoryCommentStore) GetMany(_ context.Context, ids []string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (s *InMemoryCommentStore) Create(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.NewString()
	now := s.now()
	if !now.After(s.lastCreated) {
		now = s.lastCreated.Add(time.Microsecond)
	}
	s.lastCreated = now
	c.CreatedAt = now
	c.UpdatedAt = now
	c.LikerIDs = []string{}
	c.DislikerIDs = []string{}
	c.ReplyIDs = []string{}
	c = clone(c)
	s.comments[c.ID] = c
	return clone(c), nil
}

func (s *InMemoryCommentStore) UpdateFields(_ context.Context, id string, u FieldUpdate) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	if u.Content != nil {
		c.Content = *u.Content
	}
	if u.IsEdited != nil {
		c.IsEdited = *u.IsEdited
	}
	if u.EditedAt != nil {
		at := *u.EditedAt
		c.EditedAt = &at
	}
	c.UpdatedAt = s.now()
	s.comments[id] = c
	return clone(c), nil
}

func (s *InMemoryCommentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *InMemoryCommentStore) DeleteWhere(_ context.Context, f Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, c := range s.comments {
		if c.matches(f) {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryCommentStore) Query(_ context.Context, f Filter, by Sort, offset, limit int) ([]Comment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Comment
	for _, c := range s.comments {
		if c.matches(f) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return less(by, matched[i], matched[j]) })

	total := int64(len(matched))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []Comment{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]Comment, len(matched))
	for i, c := range matched {
		out[i] = clone(c)
	}
	return out, total, nil
}

// less orders comments by the sort key, then newest first, then id.
func less(by Sort, a, b Comment) bool {
	switch by {
	case SortMostLiked:
		if len(a.LikerIDs) != len(b.LikerIDs) {
			return len(a.LikerIDs) > len(b.LikerIDs)
		}
	case SortMostDisliked:
		if len(a.DislikerIDs) != len(b.DislikerIDs) {
			return len(a.DislikerIDs) > len(b.DislikerIDs)
		}
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *InMemoryCommentStore) AddToSet(_ context.Context, id string, set VoteSet, userID string) error {
	return s.mutate(id, func(c *Comment) {
		members := c.members(set)
		if !slices.Contains(*members, userID) {
			*members = append(*members, userID)
		}
	})
}

func (s *InMemoryCommentStore) RemoveFromSet(_ context.Context, id string, set VoteSet, userID string) error {
	return s.mutate(id, func(c *Comment) {
		members := c.members(set)
		*members = slices.DeleteFunc(*members, func(m string) bool { return m == userID })
	})
}

func (s *InMemoryCommentStore) AppendReply(_ context.Context, parentID, childID string) error {
	return s.mutate(parentID, func(c *Comment) {
		if !slices.Contains(c.ReplyIDs, childID) {
			c.ReplyIDs = append(c.ReplyIDs, childID)
		}
	})
}

func (s *InMemoryCommentStore) RemoveReply(_ context.Context, parentID, childID string) error {
	return s.mutate(parentID, func(c *Comment) {
		c.ReplyIDs = slices.DeleteFunc(c.ReplyIDs, func(id string) bool { return id == childID })
	})
}

func (s *InMemoryCommentStore) Ping(context.Context) error { return nil }

func (s *InMemoryCommentStore) mutate(id string, fn func(c *Comment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return ErrNotFound
	}
	fn(&c)
	c.UpdatedAt = s.now()
	s.comments[id] = c
	return nil
}

func (c *Comment) members(set VoteSet) *[]string {
	if set == Dislikers {
		return &c.DislikerIDs
	}
	return &c.LikerIDs
}
