package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brainbolt-quiz-service/internal/app"
	"brainbolt-quiz-service/internal/config"
	"brainbolt-quiz-service/internal/infra/memory"
	"brainbolt-quiz-service/internal/infra/postgres"
	infraredis "brainbolt-quiz-service/internal/infra/redis"
	transport "brainbolt-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	stateTTL := config.TTLDuration(cfg.Redis.StateTTL, time.Minute)
	poolTTL := config.TTLDuration(cfg.Redis.PoolTTL, 5*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var states app.StateRepository = memory.NewStateRepository()
	var questions app.QuestionRepository = memory.NewQuestionRepository(memory.SeedQuestions())
	var answers app.AnswerLogRepository = memory.NewAnswerLog()
	if pool != nil {
		states = postgres.NewStateRepository(pool)
		questions = postgres.NewQuestionRepository(pool)
		answers = postgres.NewAnswerLog(pool)
	}

	// The question pool cache fronts whichever repository is active; it only
	// absorbs band queries, single-question reads go straight through.
	if redisClient != nil {
		questions = infraredis.NewQuestionCache(redisClient, questions, poolTTL)
	} else {
		questions = memory.NewQuestionCache(questions, poolTTL)
	}

	var boards app.LeaderboardRepository = memory.NewLeaderboard()
	if redisClient != nil {
		boards = infraredis.NewLeaderboard(redisClient)
	}

	var cache app.Cache
	if redisClient != nil {
		cache = infraredis.NewCache(redisClient)
	} else if pool != nil {
		cache = memory.NewCache()
	}

	service := app.NewQuizService(states, questions, answers, boards, cache,
		app.WithStateTTL(stateTTL),
		app.WithLeaderboardSize(cfg.Quiz.LeaderboardSize),
		app.WithDefaultDifficulty(cfg.Quiz.DefaultDifficulty),
	)
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeLeaderboard)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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
