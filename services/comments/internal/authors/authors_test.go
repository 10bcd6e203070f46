package authors

import (
	"context"
	"strings"
	"testing"
)

func TestStaticDirectory_KnownAndUnknown(t *testing.T) {
	d := NewStaticDirectory(Summary{ID: "u1", DisplayName: "alice", Avatar: "https://cdn.example.com/a.png"})

	got, err := d.Lookup(context.Background(), []string{"u1", "u2", "u1", ""})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got["u1"].DisplayName != "alice" || got["u1"].Avatar != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected known summary: %+v", got["u1"])
	}
	if got["u2"].ID != "u2" || got["u2"].DisplayName != "u2" {
		t.Fatalf("unexpected fallback summary: %+v", got["u2"])
	}
}

func TestStaticDirectory_GeneratesMissingAvatar(t *testing.T) {
	d := NewStaticDirectory()
	d.Put(Summary{ID: "u1", DisplayName: "bob smith"})

	got, _ := d.Lookup(context.Background(), []string{"u1"})
	want := "https://ui-avatars.com/api/?name=bob+smith&background=random"
	if got["u1"].Avatar != want {
		t.Fatalf("expected %q, got %q", want, got["u1"].Avatar)
	}
}

func TestFallback(t *testing.T) {
	s := Fallback("user-9")
	if s.ID != "user-9" || !strings.Contains(s.Avatar, "name=user-9") {
		t.Fatalf("unexpected fallback: %+v", s)
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("u1"); got != "comments:author:u1" {
		t.Fatalf("unexpected cache key %q", got)
	}
}

func TestDirectoryInterface(t *testing.T) {
	var _ Directory = (*StaticDirectory)(nil)
	var _ Directory = (*PostgresDirectory)(nil)
	var _ Directory = (*CachedDirectory)(nil)
}
