package thread

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/example/comment-board/services/comments/internal/store"
)

// MaxContentLength is the maximum comment length in characters.
const MaxContentLength = 1000

var (
	ErrNotFound   = errors.New("comment not found")
	ErrForbidden  = errors.New("only the author can modify this comment")
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a single invalid input field. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ValidateContent trims content and checks it is non-empty and within
// MaxContentLength characters.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", &ValidationError{Field: "content", Message: "content is required"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", &ValidationError{Field: "content", Message: fmt.Sprintf("content must be at most %d characters", MaxContentLength)}
	}
	return content, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
