package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"quiz-journey/internal/app"
	"quiz-journey/internal/config"
	"quiz-journey/internal/domain"
	"quiz-journey/internal/infra/memory"
)

type playOptions struct {
	level      int
	random     bool
	file       string
	count      int
	difficulty string
	seconds    int
	questions  string
}

// NewPlayCmd runs one quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		Long: "Play a level quiz (--level), a random quiz (--random) or a custom quiz from a YAML file (--file).\n" +
			"Answer with the option number or its text. --questions plays offline from a YAML question bank.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.LLM.ProxyURL == "" {
				cfg.LLM.ProxyURL = "http://localhost:" + cfg.Server.Port
			}
			var bank app.QuestionSource
			if opts.questions != "" {
				source, err := memory.LoadStaticQuestionSource(opts.questions)
				if err != nil {
					return err
				}
				bank = source
			}
			service, err := buildService(cfg, nil, nil, bank)
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), service, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.level, "level", 0, "level id to play")
	cmd.Flags().BoolVar(&opts.random, "random", false, "play an unthemed quiz")
	cmd.Flags().StringVar(&opts.file, "file", "", "YAML file with a custom quiz (title, questions)")
	cmd.Flags().IntVar(&opts.count, "count", 10, "random quiz: number of questions (5-20)")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", string(domain.DifficultyMedium), "random quiz: سهل, متوسط or صعب")
	cmd.Flags().StringVar(&opts.questions, "questions", "", "YAML question bank (random, topics) used instead of the generator")
	cmd.Flags().IntVar(&opts.seconds, "time", 20, "random quiz: seconds per question (10, 15, 20, 30, 45, 60)")
	return cmd
}

func runPlay(ctx context.Context, service *app.QuizService, opts playOptions, in io.Reader, out io.Writer) error {
	router := app.NewRouter()
	if err := router.Go(app.ScreenLevelSelection); err != nil {
		return err
	}

	cfg, err := setupQuiz(ctx, service, router, opts)
	if err != nil {
		return err
	}
	if err := router.Go(app.ScreenQuiz); err != nil {
		return err
	}

	tally, err := playSession(ctx, service, cfg, in, out)
	if err != nil {
		return err
	}
	if err := router.Finish(tally); err != nil {
		return err
	}
	printStats(out, router.Stats())
	return nil
}

func setupQuiz(ctx context.Context, service *app.QuizService, router *app.Router, opts playOptions) (domain.QuizConfig, error) {
	switch {
	case opts.file != "":
		if err := router.Go(app.ScreenCustomQuizSetup); err != nil {
			return domain.QuizConfig{}, err
		}
		return loadCustomQuiz(opts.file)
	case opts.random:
		if err := router.Go(app.ScreenRandomQuizSetup); err != nil {
			return domain.QuizConfig{}, err
		}
		return service.RandomQuiz(ctx, domain.RandomSettings{
			Count:           opts.count,
			Difficulty:      domain.Difficulty(opts.difficulty),
			TimePerQuestion: opts.seconds,
		})
	case opts.level > 0:
		level, err := service.Level(ctx, opts.level)
		if err != nil {
			return domain.QuizConfig{}, err
		}
		if err := router.SelectLevel(level); err != nil {
			return domain.QuizConfig{}, err
		}
		return service.LevelQuiz(ctx, level.ID)
	}
	return domain.QuizConfig{}, errors.New("choose one of --level, --random or --file")
}

func loadCustomQuiz(path string) (domain.QuizConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.QuizConfig{}, fmt.Errorf("read quiz file: %w", err)
	}
	var cfg domain.QuizConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.QuizConfig{}, fmt.Errorf("parse quiz file: %w", err)
	}
	return domain.PrepareQuiz(cfg)
}

// playSession renders session events and feeds one input line per open
// question until the session finishes.
func playSession(ctx context.Context, service *app.QuizService, cfg domain.QuizConfig, in io.Reader, out io.Writer) (domain.Tally, error) {
	session, err := service.Start(ctx, cfg)
	if err != nil {
		return domain.Tally{}, err
	}
	events, cancel, err := service.Subscribe(ctx, session.ID())
	if err != nil {
		return domain.Tally{}, err
	}
	defer cancel()
	defer service.Abandon(ctx, session.ID())

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	prompts := make(chan domain.Question, 1)
	var final domain.Tally

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(prompts)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return errors.New("session closed")
				}
				renderEvent(out, ev)
				switch ev.Type {
				case domain.EventQuestion:
					select {
					case prompts <- *ev.Question:
					case <-gctx.Done():
						return gctx.Err()
					}
				case domain.EventFinished:
					final = ev.Snapshot.Tally
					return nil
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	g.Go(func() error {
		var (
			current *domain.Question
			input   = lines
		)
		for {
			// only read a line while a question is open
			var lineCh <-chan string
			if current != nil {
				lineCh = input
			}
			select {
			case q, ok := <-prompts:
				if !ok {
					return nil
				}
				current = &q
			case line, ok := <-lineCh:
				if !ok {
					input = nil
					continue
				}
				if line == "" {
					continue
				}
				_, err := service.SubmitAnswer(gctx, session.ID(), pickOption(line, *current))
				if errors.Is(err, domain.ErrSessionNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				current = nil
			case <-gctx.Done():
				return nil
			}
		}
	})
	if err := g.Wait(); err != nil {
		return domain.Tally{}, err
	}
	return final, nil
}

// pickOption maps "1".."4" to an option; anything else is taken as the answer text.
func pickOption(line string, q domain.Question) string {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1]
	}
	return line
}

func renderEvent(out io.Writer, ev domain.Event) {
	snap := ev.Snapshot
	switch ev.Type {
	case domain.EventQuestion:
		q := ev.Question
		fmt.Fprintf(out, "\n[%d/%d] %s (%d ث)\n", snap.Index+1, snap.Total, q.Question, q.TimeBudget())
		for i, opt := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
		}
	case domain.EventTick:
		if snap.Remaining <= 5 {
			fmt.Fprintf(out, "  ... %d\n", snap.Remaining)
		}
	case domain.EventCorrect:
		fmt.Fprintf(out, "✔ إجابة صحيحة! النقاط: %d\n", snap.Score)
	case domain.EventIncorrect:
		fmt.Fprintf(out, "✘ إجابة خاطئة (%s)\n", snap.Selected)
	case domain.EventTimeout:
		fmt.Fprintln(out, "⌛ انتهى الوقت!")
	}
}

func printStats(out io.Writer, tally domain.Tally) {
	fmt.Fprintf(out, "\nالنتيجة: %d/%d صحيحة، %d خاطئة، النقاط %d\n", tally.Correct, tally.Total, tally.Incorrect, tally.Score())
	for _, m := range tally.WrongQuestions {
		fmt.Fprintf(out, "  - %s\n    إجابتك: %s | الصحيحة: %s\n", m.Question.Question, m.SelectedAnswer, m.Question.CorrectAnswer)
	}
	fmt.Fprintln(out, app.MotivationalMessage(tally))
}
