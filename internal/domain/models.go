package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultQuestionTime applies when a question carries no time budget.
	DefaultQuestionTime = 20
	// MinQuestionTime and MaxQuestionTime bound an edited time budget (seconds).
	MinQuestionTime = 5
	MaxQuestionTime = 120

	// OptionsPerQuestion is the fixed number of answer options.
	OptionsPerQuestion = 4

	// PointsPerCorrect is the display score multiplier.
	PointsPerCorrect = 10

	// TimedOutAnswer is recorded as the selected answer when the timer runs out.
	TimedOutAnswer = "timed out"
)

// Question is one multiple-choice item of a quiz.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correctAnswer"`
	Time          int      `json:"time,omitempty" yaml:"time,omitempty"` // seconds, 0 means default
}

// TimeBudget returns the question's countdown in seconds.
func (q Question) TimeBudget() int {
	if q.Time <= 0 {
		return DefaultQuestionTime
	}
	return q.Time
}

// RawQuestion is a question as produced by a generator, before ids and times are assigned.
type RawQuestion struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correctAnswer"`
}

// QuizConfig is the immutable input of a session.
type QuizConfig struct {
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Mistake records a question the player missed.
type Mistake struct {
	Question       Question `json:"question"`
	SelectedAnswer string   `json:"selectedAnswer"`
}

// Tally accumulates the results of a session.
type Tally struct {
	Correct        int       `json:"correct"`
	Incorrect      int       `json:"incorrect"`
	Total          int       `json:"total"`
	WrongQuestions []Mistake `json:"wrongQuestions"`
}

// Score is derived from the correct count.
func (t Tally) Score() int {
	return t.Correct * PointsPerCorrect
}

// Clone returns a copy that does not share the mistakes slice.
func (t Tally) Clone() Tally {
	out := t
	out.WrongQuestions = make([]Mistake, len(t.WrongQuestions))
	copy(out.WrongQuestions, t.WrongQuestions)
	return out
}

// Outcome is the result of advancing a session.
type Outcome struct {
	Finished bool
	Tally    Tally
}

// SessionSnapshot is a read-only view of a running session.
type SessionSnapshot struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Remaining int       `json:"remaining"`
	Answered  bool      `json:"answered"`
	Selected  string    `json:"selected,omitempty"`
	Finished  bool      `json:"finished"`
	Tally     Tally     `json:"tally"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventType names a session notification.
type EventType string

const (
	EventQuestion  EventType = "question"
	EventTick      EventType = "tick"
	EventCorrect   EventType = "correct"
	EventIncorrect EventType = "incorrect"
	EventTimeout   EventType = "timeout"
	EventFinished  EventType = "finished"
)

// Event is pushed to session subscribers.
type Event struct {
	Type     EventType       `json:"type"`
	Snapshot SessionSnapshot `json:"snapshot"`
	Question *Question       `json:"question,omitempty"`
}

// Difficulty of a level or generated batch.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "سهل"
	DifficultyMedium Difficulty = "متوسط"
	DifficultyHard   Difficulty = "صعب"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Level is one of the fixed topics of the journey.
type Level struct {
	ID          int        `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	Description string     `json:"description" yaml:"description"`
}

// MaxLevels is the size of the level journey.
const MaxLevels = 200

// Criteria describes what a question source should produce.
type Criteria struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	Count       int        `json:"count"`
}

// Themed reports whether the criteria target a specific topic.
func (c Criteria) Themed() bool {
	return c.Title != ""
}

// CacheKey identifies criteria for question caches.
func (c Criteria) CacheKey() string {
	return fmt.Sprintf("%s|%s|%d", c.Title, c.Difficulty, c.Count)
}

// LevelCriteria builds themed criteria for a level.
func LevelCriteria(level Level, count int) Criteria {
	return Criteria{
		Title:       level.Title,
		Description: level.Description,
		Difficulty:  level.Difficulty,
		Count:       count,
	}
}

// RandomSettings configures an unthemed quiz.
type RandomSettings struct {
	Count           int        `json:"count"`
	Difficulty      Difficulty `json:"difficulty"`
	TimePerQuestion int        `json:"timePerQuestion"`
}

const (
	MinRandomQuestions = 5
	MaxRandomQuestions = 20
)

// TimerOptions are the per-question times offered for random quizzes.
var TimerOptions = []int{10, 15, 20, 30, 45, 60}

// Validate checks the settings against the offered ranges.
func (s RandomSettings) Validate() error {
	if s.Count < MinRandomQuestions || s.Count > MaxRandomQuestions {
		return ErrInvalidSettings
	}
	if !s.Difficulty.Valid() {
		return ErrInvalidSettings
	}
	for _, t := range TimerOptions {
		if t == s.TimePerQuestion {
			return nil
		}
	}
	return ErrInvalidSettings
}
