package thread

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/comment-board/services/comments/internal/store"
)

// Votes toggles per-user like/dislike state. A user is never in both sets.
type Votes struct {
	store  store.CommentStore
	query  *Query
	events emitter
}

func NewVotes(s store.CommentStore, q *Query, n Notifier, log *zap.Logger) *Votes {
	if log == nil {
		log = zap.NewNop()
	}
	return &Votes{store: s, query: q, events: emitter{notifier: n, log: log}}
}

func (v *Votes) ToggleLike(ctx context.Context, commentID, userID string) (View, error) {
	return v.toggle(ctx, commentID, userID, store.Likers, EventLiked)
}

func (v *Votes) ToggleDislike(ctx context.Context, commentID, userID string) (View, error) {
	return v.toggle(ctx, commentID, userID, store.Dislikers, EventDisliked)
}

func (v *Votes) toggle(ctx context.Context, commentID, userID string, set store.VoteSet, kind EventKind) (View, error) {
	c, err := v.store.Get(ctx, commentID)
	if err != nil {
		return View{}, storeErr("get comment", err)
	}

	if opposite := set.Opposite(); c.HasVoted(opposite, userID) {
		if err := v.store.RemoveFromSet(ctx, commentID, opposite, userID); err != nil {
			return View{}, storeErr("clear opposite vote", err)
		}
	}
	if c.HasVoted(set, userID) {
		err = v.store.RemoveFromSet(ctx, commentID, set, userID)
	} else {
		err = v.store.AddToSet(ctx, commentID, set, userID)
	}
	if err != nil {
		return View{}, storeErr("toggle vote", err)
	}

	view, err := v.query.GetByID(ctx, commentID)
	if err != nil {
		return View{}, err
	}
	v.events.emit(ctx, NewEvent(kind, commentID, &view))
	return view, nil
}
