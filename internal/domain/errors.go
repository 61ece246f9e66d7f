package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestionSet is returned when a session is started without questions.
	ErrEmptyQuestionSet = errors.New("quiz has no questions")
	// ErrSessionNotFound is returned when a quiz session is not running.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrLevelNotFound indicates the level id is not in the catalog.
	ErrLevelNotFound = errors.New("level not found")
	// ErrInvalidSettings indicates random quiz settings outside the offered ranges.
	ErrInvalidSettings = errors.New("invalid quiz settings")
	// ErrCorrectAnswerMissing indicates an edit removed the correct answer from the options.
	ErrCorrectAnswerMissing = errors.New("correct answer is not among the options")
	// ErrQuestionNotFound indicates an edit targets an unknown question id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion indicates a hand-built question is malformed.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidTransition is returned by the screen router.
	ErrInvalidTransition = errors.New("invalid screen transition")
)

// GenerationError is returned by question sources when questions are absent,
// malformed or could not be fetched.
type GenerationError struct {
	Reason  string
	Wrapped error
}

func (e *GenerationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("question generation failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("question generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Wrapped
}

// IsGenerationError reports whether err carries a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
