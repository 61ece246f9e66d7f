package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-journey/internal/domain"
)

func TestThreeQuestionScenario(t *testing.T) {
	sched := newFakeScheduler()
	var reported []domain.SessionSnapshot
	session := startTestSession(t, sched, threeQuestions(), func(s domain.SessionSnapshot) {
		reported = append(reported, s)
	})

	if !session.SubmitAnswer("A1") {
		t.Fatalf("expected first answer to apply")
	}
	sched.Advance(DefaultAnswerDelay)

	if !session.SubmitAnswer("X") {
		t.Fatalf("expected second answer to apply")
	}
	sched.Advance(DefaultAnswerDelay)

	// Let question 3 run out (budget 5s) and the timeout delay elapse.
	sched.Advance(5 * time.Second)
	snap := session.Snapshot()
	if !snap.Answered || snap.Finished {
		t.Fatalf("expected timed out question awaiting advance, got %+v", snap)
	}
	sched.Advance(DefaultTimeoutDelay)

	snap = session.Snapshot()
	if !snap.Finished {
		t.Fatalf("expected session finished, got %+v", snap)
	}
	tally := snap.Tally
	if tally.Correct != 1 || tally.Incorrect != 2 || tally.Total != 3 {
		t.Fatalf("unexpected tally %+v", tally)
	}
	if len(tally.WrongQuestions) != 2 {
		t.Fatalf("expected 2 mistakes, got %d", len(tally.WrongQuestions))
	}
	if tally.WrongQuestions[0].Question.ID != "q2" || tally.WrongQuestions[0].SelectedAnswer != "X" {
		t.Fatalf("unexpected first mistake %+v", tally.WrongQuestions[0])
	}
	if tally.WrongQuestions[1].Question.ID != "q3" || tally.WrongQuestions[1].SelectedAnswer != domain.TimedOutAnswer {
		t.Fatalf("unexpected second mistake %+v", tally.WrongQuestions[1])
	}
	if len(reported) != 1 || reported[0].Tally.Total != 3 {
		t.Fatalf("expected a single report with total 3, got %+v", reported)
	}
	if snap.Score != 10 {
		t.Fatalf("expected score 10, got %d", snap.Score)
	}
}

func TestSingleQuestionAnsweredBeforeTimeout(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, domain.QuizConfig{
		Title:     "one",
		Questions: []domain.Question{question("q1", "A1", 20)},
	}, nil)

	sched.Advance(3 * time.Second)
	session.SubmitAnswer("A1")

	out := session.Advance()
	if !out.Finished || out.Tally.Correct != 1 || out.Tally.Total != 1 {
		t.Fatalf("expected finished with one correct, got %+v", out)
	}

	// Nothing left may fire.
	sched.Advance(time.Minute)
	snap := session.Snapshot()
	if snap.Tally.Incorrect != 0 || len(snap.Tally.WrongQuestions) != 0 {
		t.Fatalf("timeout fired after answer: %+v", snap.Tally)
	}
}

func TestStartRejectsEmptyQuestionSet(t *testing.T) {
	session, err := StartSession("s", domain.QuizConfig{Title: "empty"}, SessionOptions{Scheduler: newFakeScheduler()})
	if !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected ErrEmptyQuestionSet, got %v", err)
	}
	if session != nil {
		t.Fatalf("expected no session")
	}
}

func TestSubmitAnswerIsIdempotent(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	if !session.SubmitAnswer("wrong") {
		t.Fatalf("first submit should apply")
	}
	if session.SubmitAnswer("A1") {
		t.Fatalf("second submit should be ignored")
	}
	tally := session.Snapshot().Tally
	if tally.Incorrect != 1 || tally.Correct != 0 || tally.Total != 1 || len(tally.WrongQuestions) != 1 {
		t.Fatalf("duplicate submit changed tally: %+v", tally)
	}
}

func TestTimerCountsDownAndResetsPerQuestion(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	if got := session.Snapshot().Remaining; got != 10 {
		t.Fatalf("expected 10s on first question, got %d", got)
	}
	sched.Advance(4 * time.Second)
	if got := session.Snapshot().Remaining; got != 6 {
		t.Fatalf("expected 6s left, got %d", got)
	}

	session.SubmitAnswer("A1")
	sched.Advance(time.Second)
	if got := session.Snapshot().Remaining; got != 6 {
		t.Fatalf("timer ticked after answer: %d", got)
	}

	// The answer landed at 4s, so the advance is due at 6s.
	sched.Advance(time.Second)
	snap := session.Snapshot()
	if snap.Index != 1 || snap.Answered || snap.Remaining != questionTime(threeQuestions(), 1) {
		t.Fatalf("expected fresh second question, got %+v", snap)
	}
}

func TestStaleTickAfterAnswerIsIgnored(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	pending := sched.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected one pending tick, got %d", len(pending))
	}
	session.SubmitAnswer("A1")

	// Simulate the tick callback racing with Stop.
	pending[0].f()
	snap := session.Snapshot()
	if snap.Remaining != 10 || snap.Tally.Total != 1 {
		t.Fatalf("stale tick mutated state: %+v", snap)
	}
}

func TestStaleTickFromPreviousQuestionIsIgnored(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	firstTick := sched.Pending()[0]
	session.SubmitAnswer("A1")
	session.Advance()

	firstTick.f()
	if got := session.Snapshot().Remaining; got != questionTime(threeQuestions(), 1) {
		t.Fatalf("tick from question 1 applied to question 2: remaining=%d", got)
	}
}

func TestTimeoutFiresExactlyOnce(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, domain.QuizConfig{
		Title:     "t",
		Questions: []domain.Question{question("q1", "A1", 5), question("q2", "A2", 5)},
	}, nil)

	events, cancel := session.Subscribe()
	defer cancel()
	<-events // initial question

	sched.Advance(5 * time.Second)
	if session.SubmitAnswer("A1") {
		t.Fatalf("answer accepted after timeout")
	}
	tally := session.Snapshot().Tally
	if tally.Incorrect != 1 || tally.Total != 1 {
		t.Fatalf("unexpected tally after timeout: %+v", tally)
	}
	if got := session.Snapshot().Selected; got != domain.TimedOutAnswer {
		t.Fatalf("expected selected %q after timeout, got %q", domain.TimedOutAnswer, got)
	}

	var timeouts, incorrect int
	for drained := false; !drained; {
		select {
		case ev := <-events:
			switch ev.Type {
			case domain.EventTimeout:
				timeouts++
			case domain.EventIncorrect:
				incorrect++
			}
		default:
			drained = true
		}
	}
	if timeouts != 1 || incorrect != 0 {
		t.Fatalf("expected one timeout and no incorrect signal, got timeouts=%d incorrect=%d", timeouts, incorrect)
	}
}

func TestFeedbackDelays(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	session.SubmitAnswer("A1")
	sched.Advance(DefaultAnswerDelay - time.Millisecond)
	if session.Snapshot().Index != 0 {
		t.Fatalf("advanced before the answer delay elapsed")
	}
	sched.Advance(time.Millisecond)
	if session.Snapshot().Index != 1 {
		t.Fatalf("expected advance after answer delay")
	}
}

func TestAdvanceWhileUnansweredIsNoop(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	out := session.Advance()
	if out.Finished || session.Snapshot().Index != 0 {
		t.Fatalf("advance moved an unanswered question")
	}
}

func TestEventsAfterFinishAreNoops(t *testing.T) {
	sched := newFakeScheduler()
	reports := 0
	session := startTestSession(t, sched, domain.QuizConfig{
		Title:     "one",
		Questions: []domain.Question{question("q1", "A1", 10)},
	}, func(domain.SessionSnapshot) { reports++ })

	session.SubmitAnswer("nope")
	if out := session.Advance(); !out.Finished {
		t.Fatalf("expected finished")
	}
	if session.SubmitAnswer("A1") {
		t.Fatalf("submit accepted after finish")
	}
	sched.Advance(time.Minute)
	out := session.Advance()
	if !out.Finished || out.Tally.Total != 1 || out.Tally.Incorrect != 1 {
		t.Fatalf("tally changed after finish: %+v", out.Tally)
	}
	if reports != 1 {
		t.Fatalf("expected exactly one report, got %d", reports)
	}
}

func TestManualAdvanceCancelsScheduledAdvance(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	session.SubmitAnswer("A1")
	session.Advance()
	sched.Advance(DefaultAnswerDelay)
	if got := session.Snapshot().Index; got != 1 {
		t.Fatalf("scheduled advance applied on top of manual advance: index=%d", got)
	}
}

func TestCloseCancelsEverything(t *testing.T) {
	sched := newFakeScheduler()
	reports := 0
	session := startTestSession(t, sched, threeQuestions(), func(domain.SessionSnapshot) { reports++ })

	events, cancel := session.Subscribe()
	defer cancel()

	session.SubmitAnswer("A1")
	session.Close()
	sched.Advance(time.Minute)

	if reports != 0 {
		t.Fatalf("closed session reported")
	}
	if session.SubmitAnswer("A2") {
		t.Fatalf("closed session accepted answer")
	}
	for range events {
	}
}

func TestInvariantsHoldThroughoutSession(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	check := func() {
		snap := session.Snapshot()
		tally := snap.Tally
		if tally.Total != tally.Correct+tally.Incorrect {
			t.Fatalf("total mismatch: %+v", tally)
		}
		if tally.Correct+tally.Incorrect > snap.Index+1 {
			t.Fatalf("more resolutions than questions seen: %+v", snap)
		}
		if snap.Index < 0 || snap.Index >= snap.Total {
			t.Fatalf("index out of range: %+v", snap)
		}
	}

	for i := 0; i < 40; i++ {
		check()
		if i%7 == 3 {
			session.SubmitAnswer("A2")
		}
		sched.Advance(500 * time.Millisecond)
	}
	if !session.Snapshot().Finished {
		t.Fatalf("expected session to finish")
	}
}

func TestSubscribeReceivesQuestionEvents(t *testing.T) {
	sched := newFakeScheduler()
	session := startTestSession(t, sched, threeQuestions(), nil)

	events, cancel := session.Subscribe()
	defer cancel()

	first := <-events
	if first.Type != domain.EventQuestion || first.Question == nil || first.Question.ID != "q1" {
		t.Fatalf("expected initial question event, got %+v", first)
	}

	session.SubmitAnswer("A1")
	if ev := <-events; ev.Type != domain.EventCorrect || ev.Snapshot.Tally.Correct != 1 {
		t.Fatalf("expected correct event, got %+v", ev)
	}
	sched.Advance(DefaultAnswerDelay)
	if ev := <-events; ev.Type != domain.EventQuestion || ev.Question.ID != "q2" {
		t.Fatalf("expected second question, got %+v", ev)
	}
}

func startTestSession(t *testing.T, sched *fakeScheduler, cfg domain.QuizConfig, onFinish func(domain.SessionSnapshot)) *Session {
	t.Helper()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	session, err := StartSession("session-1", cfg, SessionOptions{
		Scheduler: sched,
		Now:       func() time.Time { return fixed },
		OnFinish:  onFinish,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session
}

func threeQuestions() domain.QuizConfig {
	return domain.QuizConfig{
		Title: "Seerah",
		Questions: []domain.Question{
			question("q1", "A1", 10),
			question("q2", "A2", 0),
			question("q3", "A3", 5),
		},
	}
}

func question(id, correct string, seconds int) domain.Question {
	return domain.Question{
		ID:            id,
		Question:      "prompt " + id,
		Options:       []string{correct, "X", "Y", "Z"},
		CorrectAnswer: correct,
		Time:          seconds,
	}
}

func questionTime(cfg domain.QuizConfig, i int) int {
	return cfg.Questions[i].TimeBudget()
}

// fakeScheduler fires callbacks deterministically as virtual time advances.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	f       func()
	fired   bool
	stopped bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Pending returns timers that have neither fired nor been stopped.
func (s *fakeScheduler) Pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *fakeTimer
		for _, t := range s.timers {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.fired = true
		s.now = next.at
		s.mu.Unlock()
		next.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
