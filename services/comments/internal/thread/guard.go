package thread

import "github.com/example/comment-board/services/comments/internal/store"

// Authorize permits mutation only by the comment's author. Existence is the
// caller's concern.
func Authorize(c store.Comment, requesterID string) error {
	if requesterID == "" || c.AuthorID != requesterID {
		return ErrForbidden
	}
	return nil
}
