package app

import (
	"sync"
	"time"

	"quiz-journey/internal/domain"
)

const (
	// DefaultAnswerDelay is how long feedback stays up after an active answer.
	DefaultAnswerDelay = 2000 * time.Millisecond
	// DefaultTimeoutDelay is the shorter pause after the timer runs out.
	DefaultTimeoutDelay = 1500 * time.Millisecond

	tickInterval = time.Second
)

// Timer is a cancellable deferred callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The production implementation wraps time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SessionOptions tune a session. Zero values select the defaults.
type SessionOptions struct {
	Scheduler    Scheduler
	Now          func() time.Time
	AnswerDelay  time.Duration
	TimeoutDelay time.Duration
	// OnFinish runs once, outside the session lock, when the last question resolves.
	OnFinish func(domain.SessionSnapshot)
}

// Session drives one quiz run: per-question countdown, answer evaluation,
// tally accumulation and advancement to the final summary.
//
// Every scheduled callback carries the generation it was created in. Answering,
// advancing and closing bump the generation, so a callback that lost the race
// with Stop finds a stale generation and does nothing.
type Session struct {
	id           string
	title        string
	questions    []domain.Question
	now          func() time.Time
	sched        Scheduler
	answerDelay  time.Duration
	timeoutDelay time.Duration
	onFinish     func(domain.SessionSnapshot)

	mu           sync.Mutex
	index        int
	remaining    int
	answered     bool
	selected     string
	finished     bool
	closed       bool
	tally        domain.Tally
	gen          uint64
	tickTimer    Timer
	advanceTimer Timer
	subscribers  map[chan domain.Event]struct{}
}

// StartSession validates cfg and starts the countdown for the first question.
func StartSession(id string, cfg domain.QuizConfig, opts SessionOptions) (*Session, error) {
	if len(cfg.Questions) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}

	questions := make([]domain.Question, len(cfg.Questions))
	copy(questions, cfg.Questions)

	s := &Session{
		id:           id,
		title:        cfg.Title,
		questions:    questions,
		now:          opts.Now,
		sched:        opts.Scheduler,
		answerDelay:  opts.AnswerDelay,
		timeoutDelay: opts.TimeoutDelay,
		onFinish:     opts.OnFinish,
		subscribers:  make(map[chan domain.Event]struct{}),
		tally:        domain.Tally{WrongQuestions: []domain.Mistake{}},
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sched == nil {
		s.sched = realScheduler{}
	}
	if s.answerDelay <= 0 {
		s.answerDelay = DefaultAnswerDelay
	}
	if s.timeoutDelay <= 0 {
		s.timeoutDelay = DefaultTimeoutDelay
	}

	s.mu.Lock()
	s.remaining = s.questions[0].TimeBudget()
	s.scheduleTickLocked()
	s.mu.Unlock()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Title returns the quiz title.
func (s *Session) Title() string {
	return s.title
}

// SubmitAnswer evaluates choice against the current question. It reports whether
// the answer was applied; duplicates and answers after the end are ignored.
func (s *Session) SubmitAnswer(choice string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.answered {
		return false
	}
	s.resolveLocked(choice, false)
	return true
}

// Advance moves past an answered question. It is a no-op while the current
// question is still open and returns the final tally once finished.
func (s *Session) Advance() domain.Outcome {
	s.mu.Lock()
	if s.finished {
		out := domain.Outcome{Finished: true, Tally: s.tally.Clone()}
		s.mu.Unlock()
		return out
	}
	if !s.answered {
		s.mu.Unlock()
		return domain.Outcome{}
	}
	out := s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if out.Finished {
		s.finish(snap)
	}
	return out
}

// Snapshot returns the current state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CurrentQuestion returns the question on screen, or false once finished.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.Question{}, false
	}
	return s.questions[s.index], true
}

// Close abandons the session: pending callbacks are cancelled and subscribers
// are released. No report is emitted.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.finished = true
	s.gen++
	stopTimer(s.tickTimer)
	stopTimer(s.advanceTimer)
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel of session events. The first event describes the
// current state. The caller must invoke the returned cancel function.
func (s *Session) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.currentEventLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) scheduleTickLocked() {
	gen := s.gen
	s.tickTimer = s.sched.AfterFunc(tickInterval, func() { s.onTick(gen) })
}

func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.answered || s.finished {
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.broadcastLocked(domain.EventTick, nil)
		s.scheduleTickLocked()
		return
	}
	s.onTimeoutLocked()
}

// onTimeoutLocked resolves the open question as missed. Unlike a wrong answer it
// emits a timeout event rather than an incorrect one.
func (s *Session) onTimeoutLocked() {
	if s.finished || s.answered {
		return
	}
	s.remaining = 0
	s.resolveLocked(domain.TimedOutAnswer, true)
}

func (s *Session) resolveLocked(choice string, timedOut bool) {
	s.answered = true
	s.gen++
	stopTimer(s.tickTimer)

	q := s.questions[s.index]
	s.selected = choice

	s.tally.Total++
	delay := s.answerDelay
	switch {
	case timedOut:
		s.tally.Incorrect++
		s.tally.WrongQuestions = append(s.tally.WrongQuestions, domain.Mistake{Question: q, SelectedAnswer: domain.TimedOutAnswer})
		s.broadcastLocked(domain.EventTimeout, nil)
		delay = s.timeoutDelay
	case choice == q.CorrectAnswer:
		s.tally.Correct++
		s.broadcastLocked(domain.EventCorrect, nil)
	default:
		s.tally.Incorrect++
		s.tally.WrongQuestions = append(s.tally.WrongQuestions, domain.Mistake{Question: q, SelectedAnswer: choice})
		s.broadcastLocked(domain.EventIncorrect, nil)
	}

	gen := s.gen
	s.advanceTimer = s.sched.AfterFunc(delay, func() { s.autoAdvance(gen) })
}

func (s *Session) autoAdvance(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.finished || !s.answered {
		s.mu.Unlock()
		return
	}
	out := s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if out.Finished {
		s.finish(snap)
	}
}

func (s *Session) advanceLocked() domain.Outcome {
	s.gen++
	stopTimer(s.advanceTimer)
	stopTimer(s.tickTimer)

	if s.index+1 < len(s.questions) {
		s.index++
		s.answered = false
		s.selected = ""
		s.remaining = s.questions[s.index].TimeBudget()
		q := s.questions[s.index]
		s.broadcastLocked(domain.EventQuestion, &q)
		s.scheduleTickLocked()
		return domain.Outcome{}
	}

	s.finished = true
	s.broadcastLocked(domain.EventFinished, nil)
	return domain.Outcome{Finished: true, Tally: s.tally.Clone()}
}

func (s *Session) finish(snap domain.SessionSnapshot) {
	if s.onFinish != nil {
		s.onFinish(snap)
	}
}

func (s *Session) currentEventLocked() domain.Event {
	if s.finished {
		return domain.Event{Type: domain.EventFinished, Snapshot: s.snapshotLocked()}
	}
	q := s.questions[s.index]
	return domain.Event{Type: domain.EventQuestion, Snapshot: s.snapshotLocked(), Question: &q}
}

func (s *Session) broadcastLocked(typ domain.EventType, q *domain.Question) {
	ev := domain.Event{Type: typ, Snapshot: s.snapshotLocked(), Question: q}
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop its oldest event so the session never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	tally := s.tally.Clone()
	return domain.SessionSnapshot{
		ID:        s.id,
		Title:     s.title,
		Index:     s.index,
		Total:     len(s.questions),
		Remaining: s.remaining,
		Answered:  s.answered,
		Selected:  s.selected,
		Finished:  s.finished,
		Tally:     tally,
		Score:     tally.Score(),
		UpdatedAt: s.now(),
	}
}

func stopTimer(t Timer) {
	if t != nil {
		t.Stop()
	}
}
