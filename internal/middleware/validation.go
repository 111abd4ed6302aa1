package middleware

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxQuestionLength = 10_000
	maxNameLength     = 256
)

// ValidateQuestion validates the text of a question.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return errors.New("question cannot be empty")
	}
	if len(question) > maxQuestionLength {
		return errors.New("question exceeds maximum length")
	}
	if !utf8.ValidString(question) {
		return errors.New("question must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateName validates a collection, application or document name. Empty
// names are accepted; callers check presence.
func ValidateName(kind, name string) error {
	if len(name) > maxNameLength {
		return fmt.Errorf("%s name exceeds maximum length", kind)
	}
	if strings.ContainsAny(name, "\x00\n\r") || !utf8.ValidString(name) {
		return fmt.Errorf("%s name contains invalid characters", kind)
	}
	return nil
}

// ValidateTopK validates the number of passages requested.
func ValidateTopK(topK int) error {
	if topK < 0 || topK > 100 {
		return errors.New("top_k must be between 0 and 100")
	}
	return nil
}
