package cli

import (
	"context"
	"fmt"
	"log"

	"brainbolt-quiz-service/internal/config"
	"brainbolt-quiz-service/internal/infra/memory"
	"brainbolt-quiz-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the bundled question set into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	questions := memory.SeedQuestions()
	if err := postgres.NewQuestionRepository(pool).UpsertQuestions(ctx, questions); err != nil {
		return err
	}
	log.Printf("seeded %d questions", len(questions))
	return nil
}
