package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateRaw checks a generated batch before any of it reaches a session.
func ValidateRaw(raw []RawQuestion) error {
	if len(raw) == 0 {
		return &GenerationError{Reason: "empty question list"}
	}
	for i, q := range raw {
		if strings.TrimSpace(q.Question) == "" {
			return &GenerationError{Reason: fmt.Sprintf("question %d has no prompt", i+1)}
		}
		if len(q.Options) != OptionsPerQuestion {
			return &GenerationError{Reason: fmt.Sprintf("question %d does not have exactly four options", i+1)}
		}
		seen := make(map[string]struct{}, len(q.Options))
		found := false
		for _, opt := range q.Options {
			if _, dup := seen[opt]; dup {
				return &GenerationError{Reason: fmt.Sprintf("question %d has duplicate options", i+1)}
			}
			seen[opt] = struct{}{}
			if opt == q.CorrectAnswer {
				found = true
			}
		}
		if q.CorrectAnswer == "" || !found {
			return &GenerationError{Reason: fmt.Sprintf("question %d correct answer is not among the options", i+1)}
		}
	}
	return nil
}

// Assemble assigns ids and a uniform time budget to a validated batch.
func Assemble(raw []RawQuestion, seconds int) []Question {
	out := make([]Question, 0, len(raw))
	for _, r := range raw {
		opts := make([]string, len(r.Options))
		copy(opts, r.Options)
		out = append(out, Question{
			ID:            uuid.NewString(),
			Question:      r.Question,
			Options:       opts,
			CorrectAnswer: r.CorrectAnswer,
			Time:          seconds,
		})
	}
	return out
}

// PrepareQuiz checks a hand-built quiz before it is started: every question
// needs a prompt, four options and its correct answer among them. Unlike
// generated batches, repeated options are allowed.
// Missing ids are assigned and explicit times are clamped.
func PrepareQuiz(cfg QuizConfig) (QuizConfig, error) {
	if len(cfg.Questions) == 0 {
		return QuizConfig{}, ErrEmptyQuestionSet
	}

	out := QuizConfig{Title: cfg.Title, Questions: make([]Question, len(cfg.Questions))}
	for i, q := range cfg.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return QuizConfig{}, fmt.Errorf("%w: question %d has no prompt", ErrInvalidQuestion, i+1)
		}
		if len(q.Options) != OptionsPerQuestion {
			return QuizConfig{}, fmt.Errorf("%w: question %d does not have exactly four options", ErrInvalidQuestion, i+1)
		}
		if q.CorrectAnswer == "" || !containsOption(q.Options, q.CorrectAnswer) {
			return QuizConfig{}, fmt.Errorf("%w: question %d correct answer is not among the options", ErrInvalidQuestion, i+1)
		}

		opts := make([]string, len(q.Options))
		copy(opts, q.Options)
		q.Options = opts
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Time != 0 {
			q.Time = ClampTime(q.Time)
		}
		out.Questions[i] = q
	}
	return out, nil
}

// ClampTime bounds an edited time budget to [MinQuestionTime, MaxQuestionTime].
func ClampTime(seconds int) int {
	if seconds < MinQuestionTime {
		return MinQuestionTime
	}
	if seconds > MaxQuestionTime {
		return MaxQuestionTime
	}
	return seconds
}

// MoveQuestion returns a copy of list with the element at from moved to index to.
// Out-of-range indexes leave the order unchanged.
func MoveQuestion(list []Question, from, to int) []Question {
	out := make([]Question, len(list))
	copy(out, list)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]Question{moved}, out[to:]...)...)
	return out
}

// UpdateQuestion replaces the question with the same id, keeping its time budget.
func UpdateQuestion(list []Question, updated Question) ([]Question, error) {
	if !containsOption(updated.Options, updated.CorrectAnswer) {
		return list, ErrCorrectAnswerMissing
	}
	out := make([]Question, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == updated.ID {
			updated.Time = out[i].Time
			out[i] = updated
			return out, nil
		}
	}
	return list, ErrQuestionNotFound
}

// DeleteQuestion drops the question with the given id.
func DeleteQuestion(list []Question, id string) []Question {
	out := make([]Question, 0, len(list))
	for _, q := range list {
		if q.ID != id {
			out = append(out, q)
		}
	}
	return out
}

// SetQuestionTime sets a clamped time budget on the question with the given id.
func SetQuestionTime(list []Question, id string, seconds int) ([]Question, error) {
	out := make([]Question, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == id {
			out[i].Time = ClampTime(seconds)
			return out, nil
		}
	}
	return list, ErrQuestionNotFound
}

func containsOption(options []string, answer string) bool {
	for _, opt := range options {
		if opt == answer {
			return true
		}
	}
	return false
}

// EditOp names one change to a question list before a quiz starts.
type EditOp string

const (
	EditMove   EditOp = "move"
	EditUpdate EditOp = "update"
	EditDelete EditOp = "delete"
	EditTime   EditOp = "time"
)

// Edit is one change to a question list. Which fields matter depends on Op.
type Edit struct {
	Op       EditOp    `json:"op"`
	From     int       `json:"from,omitempty"`
	To       int       `json:"to,omitempty"`
	ID       string    `json:"id,omitempty"`
	Question *Question `json:"question,omitempty"`
	Seconds  int       `json:"seconds,omitempty"`
}

// ApplyEdit returns a copy of list with edit applied.
func ApplyEdit(list []Question, edit Edit) ([]Question, error) {
	switch edit.Op {
	case EditMove:
		return MoveQuestion(list, edit.From, edit.To), nil
	case EditUpdate:
		if edit.Question == nil {
			return list, fmt.Errorf("%w: update without a question", ErrInvalidQuestion)
		}
		return UpdateQuestion(list, *edit.Question)
	case EditDelete:
		return DeleteQuestion(list, edit.ID), nil
	case EditTime:
		return SetQuestionTime(list, edit.ID, edit.Seconds)
	}
	return list, fmt.Errorf("%w: unknown edit %q", ErrInvalidQuestion, edit.Op)
}
