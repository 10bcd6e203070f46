package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/comment-board/internal/platform/api"
	"github.com/example/comment-board/internal/platform/auth"
	"github.com/example/comment-board/services/comments/internal/thread"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads up to maxRequestBodyBytes from r.Body, decodes JSON into
// dst and validates it. On failure it writes a 400 response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			api.ValidationFailed(w, rid, fieldMessages(verrs))
			return false
		}
		api.BadRequest(w, "INVALID_REQUEST", err.Error(), rid, nil)
		return false
	}
	return true
}

func fieldMessages(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out[field] = field + " is required"
		case "max":
			out[field] = field + " must be at most " + fe.Param() + " characters"
		case "uuid":
			out[field] = field + " must be a valid id"
		default:
			out[field] = field + " is invalid"
		}
	}
	return out
}

// requesterID returns the authenticated user, writing 401 when absent.
func requesterID(w http.ResponseWriter, r *http.Request, rid string) (string, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
		return "", false
	}
	return uid, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeError(w http.ResponseWriter, rid string, log *zap.Logger, err error) {
	var verr *thread.ValidationError
	switch {
	case errors.As(err, &verr):
		api.ValidationFailed(w, rid, map[string]string{verr.Field: verr.Message})
	case errors.Is(err, thread.ErrNotFound):
		api.NotFound(w, "COMMENT_NOT_FOUND", "Comment not found", rid)
	case errors.Is(err, thread.ErrForbidden):
		api.Forbidden(w, "NOT_COMMENT_AUTHOR", "Only the author can modify this comment", rid)
	default:
		if log != nil {
			log.Error("request failed", zap.String("request_id", rid), zap.Error(err))
		}
		api.Internal(w, rid)
	}
}
