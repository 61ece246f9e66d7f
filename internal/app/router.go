package app

import (
	"fmt"
	"sync"

	"quiz-journey/internal/domain"
)

// Screen is one view of the quiz flow.
type Screen string

const (
	ScreenHome            Screen = "HOME"
	ScreenLevelSelection  Screen = "LEVEL_SELECTION"
	ScreenLevelQuizSetup  Screen = "LEVEL_QUIZ_SETUP"
	ScreenRandomQuizSetup Screen = "RANDOM_QUIZ_SETUP"
	ScreenCustomQuizSetup Screen = "CUSTOM_QUIZ_SETUP"
	ScreenQuiz            Screen = "QUIZ"
	ScreenStats           Screen = "STATS"
)

var screenTransitions = map[Screen][]Screen{
	ScreenHome:            {ScreenLevelSelection},
	ScreenLevelSelection:  {ScreenLevelQuizSetup, ScreenRandomQuizSetup, ScreenCustomQuizSetup},
	ScreenLevelQuizSetup:  {ScreenQuiz, ScreenLevelSelection},
	ScreenRandomQuizSetup: {ScreenQuiz, ScreenLevelSelection},
	ScreenCustomQuizSetup: {ScreenQuiz, ScreenLevelSelection},
	ScreenStats:           {ScreenLevelSelection},
}

// Router tracks the current screen. It is separate from the session state:
// the quiz screen is left only through Finish with the session's final tally.
type Router struct {
	mu     sync.Mutex
	screen Screen
	level  *domain.Level
	tally  domain.Tally
}

func NewRouter() *Router {
	return &Router{screen: ScreenHome}
}

// Screen returns the current screen.
func (r *Router) Screen() Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screen
}

// Go moves to the next screen if the transition is allowed.
func (r *Router) Go(next Screen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !allowed(r.screen, next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, r.screen, next)
	}
	if next == ScreenLevelSelection {
		r.level = nil
	}
	if next == ScreenQuiz {
		r.tally = domain.Tally{}
	}
	r.screen = next
	return nil
}

// SelectLevel moves from level selection to the setup of one level.
func (r *Router) SelectLevel(level domain.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.screen != ScreenLevelSelection {
		return fmt.Errorf("%w: select level from %s", domain.ErrInvalidTransition, r.screen)
	}
	r.level = &level
	r.screen = ScreenLevelQuizSetup
	return nil
}

// Level returns the level being set up, if any.
func (r *Router) Level() (domain.Level, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.level == nil {
		return domain.Level{}, false
	}
	return *r.level, true
}

// Finish consumes a session's final tally and shows the stats screen.
func (r *Router) Finish(tally domain.Tally) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.screen != ScreenQuiz {
		return fmt.Errorf("%w: finish from %s", domain.ErrInvalidTransition, r.screen)
	}
	r.tally = tally.Clone()
	r.screen = ScreenStats
	return nil
}

// Stats returns the tally shown on the stats screen.
func (r *Router) Stats() domain.Tally {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tally.Clone()
}

func allowed(from, to Screen) bool {
	for _, s := range screenTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
