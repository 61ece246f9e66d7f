package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"quiz-journey/internal/domain"
)

const (
	// QuestionsPerLevel is the size of a level quiz.
	QuestionsPerLevel = 10
	// QuestionsPerTopic is how many questions the custom builder adds per topic.
	QuestionsPerTopic = 5
	// RandomQuizTitle is the title shown for unthemed quizzes.
	RandomQuizTitle = "تحدي عشوائي"
)

// SessionRepository abstracts where running sessions live (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionSource produces questions for the given criteria.
type QuestionSource interface {
	Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawQuestion, error)
}

// LevelCatalog lists the fixed topic levels.
type LevelCatalog interface {
	ListLevels(ctx context.Context) ([]domain.Level, error)
	GetLevel(ctx context.Context, id int) (domain.Level, error)
}

// Reporter receives the final snapshot of every completed session.
type Reporter interface {
	Report(ctx context.Context, snapshot domain.SessionSnapshot)
}

// ServiceOptions configures a QuizService.
type ServiceOptions struct {
	Reporter Reporter
	// Session is the template for every started session; OnFinish is overwritten.
	Session SessionOptions
}

// QuizService contains the quiz use cases: building quizzes from the three
// sources and running their sessions.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionSource
	levels    LevelCatalog
	reporter  Reporter
	opts      SessionOptions
}

func NewQuizService(store SessionRepository, questions QuestionSource, levels LevelCatalog, opts ServiceOptions) *QuizService {
	return &QuizService{
		sessions:  store,
		questions: questions,
		levels:    levels,
		reporter:  opts.Reporter,
		opts:      opts.Session,
	}
}

// Levels returns the level catalog.
func (s *QuizService) Levels(ctx context.Context) ([]domain.Level, error) {
	return s.levels.ListLevels(ctx)
}

// Level returns one level of the catalog.
func (s *QuizService) Level(ctx context.Context, id int) (domain.Level, error) {
	return s.levels.GetLevel(ctx, id)
}

// SearchLevels filters the catalog by a case-insensitive substring of title or description.
func (s *QuizService) SearchLevels(ctx context.Context, query string) ([]domain.Level, error) {
	levels, err := s.levels.ListLevels(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return levels, nil
	}
	out := make([]domain.Level, 0, len(levels))
	for _, level := range levels {
		if strings.Contains(strings.ToLower(level.Title), query) ||
			strings.Contains(strings.ToLower(level.Description), query) {
			out = append(out, level)
		}
	}
	return out, nil
}

// LevelQuiz generates the questions of a level quiz.
func (s *QuizService) LevelQuiz(ctx context.Context, levelID int) (domain.QuizConfig, error) {
	level, err := s.levels.GetLevel(ctx, levelID)
	if err != nil {
		return domain.QuizConfig{}, err
	}
	raw, err := s.fetch(ctx, domain.LevelCriteria(level, QuestionsPerLevel))
	if err != nil {
		return domain.QuizConfig{}, err
	}
	return domain.QuizConfig{
		Title:     level.Title,
		Questions: domain.Assemble(raw, domain.DefaultQuestionTime),
	}, nil
}

// TopicQuestions generates questions for one topic of a custom quiz.
func (s *QuizService) TopicQuestions(ctx context.Context, levelID, count int) ([]domain.Question, error) {
	if count <= 0 {
		count = QuestionsPerTopic
	}
	level, err := s.levels.GetLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}
	raw, err := s.fetch(ctx, domain.LevelCriteria(level, count))
	if err != nil {
		return nil, err
	}
	return domain.Assemble(raw, domain.DefaultQuestionTime), nil
}

// RandomQuiz generates an unthemed quiz with a uniform time per question.
func (s *QuizService) RandomQuiz(ctx context.Context, settings domain.RandomSettings) (domain.QuizConfig, error) {
	if err := settings.Validate(); err != nil {
		return domain.QuizConfig{}, err
	}
	raw, err := s.fetch(ctx, domain.Criteria{Difficulty: settings.Difficulty, Count: settings.Count})
	if err != nil {
		return domain.QuizConfig{}, err
	}
	return domain.QuizConfig{
		Title:     RandomQuizTitle,
		Questions: domain.Assemble(raw, settings.TimePerQuestion),
	}, nil
}

// Start begins a session for cfg. The session is dropped from the repository
// and reported once its last question resolves.
func (s *QuizService) Start(ctx context.Context, cfg domain.QuizConfig) (*Session, error) {
	if len(cfg.Questions) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}

	id := uuid.NewString()
	opts := s.opts
	opts.OnFinish = func(snap domain.SessionSnapshot) {
		s.sessions.Delete(snap.ID)
		if s.reporter != nil {
			s.reporter.Report(context.WithoutCancel(ctx), snap)
		}
	}

	session, err := StartSession(id, cfg, opts)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(session)
	return session, nil
}

// SubmitAnswer forwards a player's choice to a running session.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID, choice string) (bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(choice), nil
}

// Advance skips the feedback pause of an answered question.
func (s *QuizService) Advance(_ context.Context, sessionID string) (domain.Outcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Outcome{}, domain.ErrSessionNotFound
	}
	return session.Advance(), nil
}

// Snapshot returns the state of a running session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives the session's events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Abandon stops a running session without reporting it.
func (s *QuizService) Abandon(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

// fetch validates a generated batch; transport and parse failures surface as
// a single GenerationError.
func (s *QuizService) fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawQuestion, error) {
	raw, err := s.questions.Fetch(ctx, criteria)
	if err != nil {
		if domain.IsGenerationError(err) {
			return nil, err
		}
		return nil, &domain.GenerationError{Reason: "fetch questions", Wrapped: err}
	}
	if err := domain.ValidateRaw(raw); err != nil {
		return nil, err
	}
	return raw, nil
}
