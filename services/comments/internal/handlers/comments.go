package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/comment-board/internal/platform/api"
	"github.com/example/comment-board/internal/platform/httpserver"
	"github.com/example/comment-board/services/comments/internal/store"
	"github.com/example/comment-board/services/comments/internal/thread"
)

type Reader interface {
	List(ctx context.Context, page, limit int, sort store.Sort) (thread.Page, error)
	GetByID(ctx context.Context, id string) (thread.View, error)
}

type Writer interface {
	Create(ctx context.Context, content, authorID string, parentID *string) (thread.View, error)
	Update(ctx context.Context, commentID, requesterID, content string) (thread.View, error)
	Delete(ctx context.Context, commentID, requesterID string) error
}

type Voter interface {
	ToggleLike(ctx context.Context, commentID, userID string) (thread.View, error)
	ToggleDislike(ctx context.Context, commentID, userID string) (thread.View, error)
}

type createCommentReq struct {
	Content  string  `json:"content" validate:"required,max=1000"`
	ParentID *string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
}

type updateCommentReq struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type messageResp struct {
	Message string `json:"message"`
}

func commentID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func ListComments(q Reader, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		page := queryInt(r, "page", thread.DefaultPage)
		limit := queryInt(r, "limit", thread.DefaultLimit)
		sort := store.ParseSort(strings.TrimSpace(r.URL.Query().Get("sort")))

		resp, err := q.List(r.Context(), page, limit, sort)
		if err != nil {
			writeError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

func GetComment(q Reader, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		v, err := q.GetByID(r.Context(), commentID(r))
		if err != nil {
			writeError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, v)
	}
}

func CreateComment(m Writer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requesterID(w, r, rid)
		if !ok {
			return
		}

		var req createCommentReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		v, err := m.Create(r.Context(), req.Content, uid, req.ParentID)
		if err != nil {
			writeError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, v)
	}
}

func UpdateComment(m Writer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requesterID(w, r, rid)
		if !ok {
			return
		}

		var req updateCommentReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		v, err := m.Update(r.Context(), commentID(r), uid, req.Content)
		if err != nil {
			writeError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, v)
	}
}

func DeleteComment(m Writer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requesterID(w, r, rid)
		if !ok {
			return
		}

		if err := m.Delete(r.Context(), commentID(r), uid); err != nil {
			writeError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, messageResp{Message: "Comment deleted successfully"})
	}
}

func LikeComment(v Voter, log *zap.Logger) http.HandlerFunc {
	return vote(v.ToggleLike, log)
}

func DislikeComment(v Voter, log *zap.Logger) http.HandlerFunc {
	return vote(v.ToggleDislike, log)
}

func vote(toggle func(ctx context.Context, commentID, userID string) (thread.View, error), log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requesterID(w, r, rid)
		if !ok {
			return
		}

		view, err := toggle(r.Context(), commentID(r), uid)
		if err != nil {
			writeError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}
