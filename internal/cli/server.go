package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-journey/internal/app"
	"quiz-journey/internal/config"
	"quiz-journey/internal/infra/llm"
	"quiz-journey/internal/infra/memory"
	"quiz-journey/internal/infra/postgres"
	redisinfra "quiz-journey/internal/infra/redis"
	transport "quiz-journey/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	if cfg.LLM.ProxyURL == "" {
		cfg.LLM.ProxyURL = "http://localhost:" + finalPort
		log.Printf("llm proxy_url not set, generating through this server")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	service, err := buildService(cfg, redisClient, pool, nil)
	if err != nil {
		return err
	}

	upstream := llm.NewGeminiClient(cfg.LLM.UpstreamURL, cfg.LLM.Model, cfg.LLM.APIKey,
		config.TTLDuration(cfg.LLM.Timeout, 60*time.Second))
	if !upstream.HasKey() {
		log.Printf("GEMINI_API_KEY not set, /api/generate will fail")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)
	mux.Handle("/api/generate", transport.NewProxyHandler(upstream))
	transport.NewAPIHandler(service).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // level quizzes wait on generation
	}

	go func() {
		log.Printf("starting quiz-journey on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildService wires the quiz service from config: Redis and Postgres when
// configured, in-memory stores and the YAML catalog otherwise. A non-nil bank
// replaces the generator and is served uncached.
func buildService(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool, bank app.QuestionSource) (*app.QuizService, error) {
	var levels app.LevelCatalog
	if pool != nil {
		levels = postgres.NewLevelCatalog(pool)
	} else {
		catalog, err := memory.LoadLevelCatalog(cfg.Levels.Path)
		if err != nil {
			return nil, err
		}
		levels = catalog
	}

	generator := llm.NewGenerator(cfg.LLM.ProxyURL, config.TTLDuration(cfg.LLM.Timeout, 60*time.Second))
	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, time.Hour)

	var (
		questions app.QuestionSource
		store     app.SessionRepository
	)
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, generator, cacheTTL)
		store = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		questions = memory.NewQuestionCache(generator, cacheTTL)
		store = memory.NewSessionStore()
	}
	if bank != nil {
		questions = bank
	}

	return app.NewQuizService(store, questions, levels, app.ServiceOptions{
		Reporter: app.LogReporter{},
		Session: app.SessionOptions{
			AnswerDelay:  config.TTLDuration(cfg.Quiz.AnswerDelay, app.DefaultAnswerDelay),
			TimeoutDelay: config.TTLDuration(cfg.Quiz.TimeoutDelay, app.DefaultTimeoutDelay),
		},
	}), nil
}
