package app

import (
	"context"
	"log"

	"quiz-journey/internal/domain"
)

// LogReporter writes completed sessions to the standard logger.
type LogReporter struct{}

func (LogReporter) Report(_ context.Context, snap domain.SessionSnapshot) {
	log.Printf("session %s (%s) finished: correct=%d incorrect=%d total=%d score=%d",
		snap.ID, snap.Title, snap.Tally.Correct, snap.Tally.Incorrect, snap.Tally.Total, snap.Tally.Score())
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, snap domain.SessionSnapshot)

func (f ReporterFunc) Report(ctx context.Context, snap domain.SessionSnapshot) {
	f(ctx, snap)
}

// MotivationalMessage picks the closing line shown with the final tally.
func MotivationalMessage(tally domain.Tally) string {
	ratio := 0.0
	if tally.Total > 0 {
		ratio = float64(tally.Correct) / float64(tally.Total)
	}
	switch {
	case ratio >= 0.7:
		return "ممتاز! أداء رائع!"
	case ratio >= 0.5:
		return "جيد جداً! استمر في التعلم."
	default:
		return "لا بأس، كل رحلة تبدأ بخطوة. حاول مرة أخرى!"
	}
}
