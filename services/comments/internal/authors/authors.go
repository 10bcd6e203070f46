// Package authors resolves author summaries for the read-side projection of
// comments.
package authors

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

// Summary is the denormalized author view attached to comments.
type Summary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

// Directory looks up summaries for a batch of user ids. Ids that are not
// known still get an entry built by Fallback.
type Directory interface {
	Lookup(ctx context.Context, ids []string) (map[string]Summary, error)
}

// GeneratedAvatar returns the placeholder avatar used for users without one.
func GeneratedAvatar(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

// Fallback builds the summary for an unknown user id.
func Fallback(id string) Summary {
	return Summary{ID: id, DisplayName: id, Avatar: GeneratedAvatar(id)}
}

func complete(s Summary) Summary {
	if strings.TrimSpace(s.DisplayName) == "" {
		s.DisplayName = s.ID
	}
	if strings.TrimSpace(s.Avatar) == "" {
		s.Avatar = GeneratedAvatar(s.DisplayName)
	}
	return s
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// StaticDirectory is an in-memory Directory used in development mode.
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[string]Summary
}

func NewStaticDirectory(users ...Summary) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]Summary, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Put registers or replaces a user.
func (d *StaticDirectory) Put(u Summary) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

func (d *StaticDirectory) Lookup(_ context.Context, ids []string) (map[string]Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]Summary, len(ids))
	for _, id := range unique(ids) {
		if u, ok := d.users[id]; ok {
			out[id] = complete(u)
			continue
		}
		out[id] = Fallback(id)
	}
	return out, nil
}
