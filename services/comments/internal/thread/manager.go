package thread

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/comment-board/services/comments/internal/store"
)

// Manager owns the comment lifecycle: creation with reply linkage, owner-only
// edits and cascading deletion.
type Manager struct {
	store  store.CommentStore
	query  *Query
	events emitter
	log    *zap.Logger
	now    func() time.Time
}

func NewManager(s store.CommentStore, q *Query, n Notifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:  s,
		query:  q,
		events: emitter{notifier: n, log: log},
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) Create(ctx context.Context, content, authorID string, parentID *string) (View, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return View{}, err
	}
	if authorID == "" {
		return View{}, &ValidationError{Field: "author_id", Message: "author is required"}
	}

	if parentID != nil {
		if _, err := uuid.Parse(*parentID); err != nil {
			return View{}, &ValidationError{Field: "parent_id", Message: "parent_id must be a valid id"}
		}
		if _, err := m.store.Get(ctx, *parentID); err != nil {
			return View{}, storeErr("get parent", err)
		}
	}

	c, err := m.store.Create(ctx, store.Comment{
		Content:  content,
		AuthorID: authorID,
		ParentID: parentID,
	})
	if err != nil {
		return View{}, storeErr("create comment", err)
	}

	if parentID != nil {
		if err := m.store.AppendReply(ctx, *parentID, c.ID); err != nil {
			// The parent vanished between the check and the append.
			m.log.Warn("reply not linked to parent",
				zap.String("comment_id", c.ID),
				zap.String("parent_id", *parentID),
				zap.Error(err))
		}
	}

	view, err := m.query.GetByID(ctx, c.ID)
	if err != nil {
		return View{}, err
	}
	m.events.emit(ctx, NewEvent(EventCreated, c.ID, &view))
	return view, nil
}

func (m *Manager) Update(ctx context.Context, commentID, requesterID, content string) (View, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return View{}, err
	}

	c, err := m.store.Get(ctx, commentID)
	if err != nil {
		return View{}, storeErr("get comment", err)
	}
	if err := Authorize(c, requesterID); err != nil {
		return View{}, err
	}

	edited := true
	at := m.now()
	if _, err := m.store.UpdateFields(ctx, commentID, store.FieldUpdate{
		Content:  &content,
		IsEdited: &edited,
		EditedAt: &at,
	}); err != nil {
		return View{}, storeErr("update comment", err)
	}

	view, err := m.query.GetByID(ctx, commentID)
	if err != nil {
		return View{}, err
	}
	m.events.emit(ctx, NewEvent(EventUpdated, commentID, &view))
	return view, nil
}

// Delete removes the comment and its direct replies, then detaches it from
// its parent. A failed detach leaves a dangling reply id which reads skip.
func (m *Manager) Delete(ctx context.Context, commentID, requesterID string) error {
	c, err := m.store.Get(ctx, commentID)
	if err != nil {
		return storeErr("get comment", err)
	}
	if err := Authorize(c, requesterID); err != nil {
		return err
	}

	removed, err := m.store.DeleteWhere(ctx, store.Filter{ParentID: commentID})
	if err != nil {
		return storeErr("delete replies", err)
	}
	if err := m.store.Delete(ctx, commentID); err != nil {
		return storeErr("delete comment", err)
	}

	if c.ParentID != nil {
		if err := m.store.RemoveReply(ctx, *c.ParentID, commentID); err != nil {
			m.log.Warn("dangling reply reference",
				zap.String("comment_id", commentID),
				zap.String("parent_id", *c.ParentID),
				zap.Error(err))
		}
	}

	m.log.Debug("comment deleted",
		zap.String("comment_id", commentID),
		zap.Int64("replies_removed", removed))
	m.events.emit(ctx, NewEvent(EventDeleted, commentID, nil))
	return nil
}
