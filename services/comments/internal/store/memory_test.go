package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryCommentStore_Create(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	c, err := s.Create(ctx, Comment{AuthorID: "user-a", Content: "hello"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected non-empty id")
	}
	if c.Content != "hello" {
		t.Fatalf("expected content 'hello', got %q", c.Content)
	}
	if c.CreatedAt.IsZero() || !c.CreatedAt.Equal(c.UpdatedAt) {
		t.Fatalf("expected store managed timestamps, got %v / %v", c.CreatedAt, c.UpdatedAt)
	}
	if len(c.LikerIDs) != 0 || len(c.DislikerIDs) != 0 || len(c.ReplyIDs) != 0 {
		t.Fatal("expected empty sets on a new comment")
	}
}

func TestInMemoryCommentStore_GetReturnsCopy(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	c, _ := s.Create(ctx, Comment{AuthorID: "user-a", Content: "hello"})
	_ = s.AddToSet(ctx, c.ID, Likers, "user-b")

	got, _ := s.Get(ctx, c.ID)
	got.LikerIDs[0] = "mutated"

	again, _ := s.Get(ctx, c.ID)
	if again.LikerIDs[0] != "user-b" {
		t.Fatalf("store state leaked through returned slice: %v", again.LikerIDs)
	}
}

func TestInMemoryCommentStore_GetMissing(t *testing.T) {
	s := NewInMemoryCommentStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryCommentStore_UpdateFields(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	c, _ := s.Create(ctx, Comment{AuthorID: "user-a", Content: "original"})
	content := "updated"
	edited := true
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := s.UpdateFields(ctx, c.ID, FieldUpdate{Content: &content, IsEdited: &edited, EditedAt: &at})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Content != "updated" || !got.IsEdited || got.EditedAt == nil || !got.EditedAt.Equal(at) {
		t.Fatalf("unexpected comment after update: %+v", got)
	}
	if got.AuthorID != "user-a" {
		t.Fatalf("author must be immutable, got %q", got.AuthorID)
	}

	if _, err := s.UpdateFields(ctx, "missing", FieldUpdate{Content: &content}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryCommentStore_SetOpsAreIdempotent(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	c, _ := s.Create(ctx, Comment{AuthorID: "user-a", Content: "voteable"})

	for i := 0; i < 2; i++ {
		if err := s.AddToSet(ctx, c.ID, Likers, "user-b"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got, _ := s.Get(ctx, c.ID)
	if len(got.LikerIDs) != 1 {
		t.Fatalf("expected single membership, got %v", got.LikerIDs)
	}

	if err := s.RemoveFromSet(ctx, c.ID, Likers, "user-b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveFromSet(ctx, c.ID, Likers, "user-b"); err != nil {
		t.Fatalf("remove absent member: %v", err)
	}
	got, _ = s.Get(ctx, c.ID)
	if len(got.LikerIDs) != 0 {
		t.Fatalf("expected empty likers, got %v", got.LikerIDs)
	}

	if err := s.AddToSet(ctx, "missing", Dislikers, "user-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryCommentStore_ReplyEdges(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	parent, _ := s.Create(ctx, Comment{AuthorID: "user-a", Content: "root"})
	_ = s.AppendReply(ctx, parent.ID, "r1")
	_ = s.AppendReply(ctx, parent.ID, "r2")
	_ = s.AppendReply(ctx, parent.ID, "r1")

	got, _ := s.Get(ctx, parent.ID)
	if len(got.ReplyIDs) != 2 || got.ReplyIDs[0] != "r1" || got.ReplyIDs[1] != "r2" {
		t.Fatalf("expected [r1 r2], got %v", got.ReplyIDs)
	}

	_ = s.RemoveReply(ctx, parent.ID, "r1")
	got, _ = s.Get(ctx, parent.ID)
	if len(got.ReplyIDs) != 1 || got.ReplyIDs[0] != "r2" {
		t.Fatalf("expected [r2], got %v", got.ReplyIDs)
	}
}

func TestInMemoryCommentStore_DeleteWhere(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	root, _ := s.Create(ctx, Comment{AuthorID: "user-a", Content: "root"})
	pid := root.ID
	_, _ = s.Create(ctx, Comment{AuthorID: "user-b", Content: "reply 1", ParentID: &pid})
	_, _ = s.Create(ctx, Comment{AuthorID: "user-c", Content: "reply 2", ParentID: &pid})
	other, _ := s.Create(ctx, Comment{AuthorID: "user-a", Content: "other"})

	n, err := s.DeleteWhere(ctx, Filter{ParentID: root.ID})
	if err != nil {
		t.Fatalf("delete where: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if _, err := s.Get(ctx, other.ID); err != nil {
		t.Fatalf("unrelated comment removed: %v", err)
	}
	if err := s.Delete(ctx, root.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, root.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestInMemoryCommentStore_QuerySortAndPaging(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	a, _ := s.Create(ctx, Comment{AuthorID: "u", Content: "a"})
	b, _ := s.Create(ctx, Comment{AuthorID: "u", Content: "b"})
	c, _ := s.Create(ctx, Comment{AuthorID: "u", Content: "c"})
	pid := a.ID
	_, _ = s.Create(ctx, Comment{AuthorID: "u", Content: "reply", ParentID: &pid})

	_ = s.AddToSet(ctx, a.ID, Likers, "x")
	_ = s.AddToSet(ctx, a.ID, Likers, "y")
	_ = s.AddToSet(ctx, b.ID, Likers, "x")
	_ = s.AddToSet(ctx, c.ID, Dislikers, "x")

	newest, total, err := s.Query(ctx, Filter{TopLevel: true}, SortNewest, 0, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 top-level comments, got %d", total)
	}
	if newest[0].ID != c.ID || newest[2].ID != a.ID {
		t.Fatalf("unexpected newest order: %s %s %s", newest[0].Content, newest[1].Content, newest[2].Content)
	}

	liked, _, _ := s.Query(ctx, Filter{TopLevel: true}, SortMostLiked, 0, 10)
	if liked[0].ID != a.ID || liked[1].ID != b.ID || liked[2].ID != c.ID {
		t.Fatalf("unexpected mostLiked order: %s %s %s", liked[0].Content, liked[1].Content, liked[2].Content)
	}

	disliked, _, _ := s.Query(ctx, Filter{TopLevel: true}, SortMostDisliked, 0, 10)
	// c leads, then a tie between b and a broken by recency.
	if disliked[0].ID != c.ID || disliked[1].ID != b.ID || disliked[2].ID != a.ID {
		t.Fatalf("unexpected mostDisliked order: %s %s %s", disliked[0].Content, disliked[1].Content, disliked[2].Content)
	}

	page, total, _ := s.Query(ctx, Filter{TopLevel: true}, SortNewest, 2, 2)
	if total != 3 || len(page) != 1 || page[0].ID != a.ID {
		t.Fatalf("unexpected second page: total=%d len=%d", total, len(page))
	}

	past, _, _ := s.Query(ctx, Filter{TopLevel: true}, SortNewest, 10, 2)
	if len(past) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(past))
	}
}

func TestInMemoryCommentStore_GetManyKeepsOrder(t *testing.T) {
	s := NewInMemoryCommentStore()
	ctx := context.Background()

	a, _ := s.Create(ctx, Comment{AuthorID: "u", Content: "a"})
	b, _ := s.Create(ctx, Comment{AuthorID: "u", Content: "b"})

	got, err := s.GetMany(ctx, []string{b.ID, "missing", a.ID})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("unexpected result order: %+v", got)
	}
}

func TestParseSort(t *testing.T) {
	cases := map[string]Sort{
		"":             SortNewest,
		"newest":       SortNewest,
		"mostLiked":    SortMostLiked,
		"mostDisliked": SortMostDisliked,
		"bogus":        SortNewest,
	}
	for in, want := range cases {
		if got := ParseSort(in); got != want {
			t.Fatalf("ParseSort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWhereClause(t *testing.T) {
	where, args, ok := whereClause(Filter{TopLevel: true})
	if !ok || where != " WHERE c.parent_id IS NULL" || len(args) != 0 {
		t.Fatalf("unexpected top-level clause %q %v", where, args)
	}
	if _, _, ok := whereClause(Filter{ParentID: "not-a-uuid"}); ok {
		t.Fatal("expected malformed parent id to match nothing")
	}
}

func TestCommentStoreInterface(t *testing.T) {
	var _ CommentStore = (*InMemoryCommentStore)(nil)
	var _ CommentStore = (*PostgresCommentStore)(nil)
	var _ CommentStore = (*MongoCommentStore)(nil)
}
