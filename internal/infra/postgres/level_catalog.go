package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-journey/internal/domain"
)

// LevelCatalog reads the level journey from the levels table.
type LevelCatalog struct {
	pool *pgxpool.Pool
}

func NewLevelCatalog(pool *pgxpool.Pool) *LevelCatalog {
	return &LevelCatalog{pool: pool}
}

func (c *LevelCatalog) ListLevels(ctx context.Context) ([]domain.Level, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, title, difficulty, description FROM levels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	defer rows.Close()

	var levels []domain.Level
	for rows.Next() {
		var (
			level      domain.Level
			difficulty string
		)
		if err := rows.Scan(&level.ID, &level.Title, &difficulty, &level.Description); err != nil {
			return nil, fmt.Errorf("scan level: %w", err)
		}
		level.Difficulty = domain.Difficulty(difficulty)
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

func (c *LevelCatalog) GetLevel(ctx context.Context, id int) (domain.Level, error) {
	var difficulty string
	level := domain.Level{ID: id}
	err := c.pool.QueryRow(ctx, `SELECT title, difficulty, description FROM levels WHERE id=$1`, id).
		Scan(&level.Title, &difficulty, &level.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Level{}, domain.ErrLevelNotFound
	}
	if err != nil {
		return domain.Level{}, fmt.Errorf("load level: %w", err)
	}
	level.Difficulty = domain.Difficulty(difficulty)
	return level, nil
}

// Upsert writes levels in one batch, replacing rows with the same id.
func (c *LevelCatalog) Upsert(ctx context.Context, levels []domain.Level) error {
	batch := &pgx.Batch{}
	for _, level := range levels {
		if level.ID < 1 || level.ID > domain.MaxLevels || !level.Difficulty.Valid() {
			return fmt.Errorf("upsert level %d: invalid level", level.ID)
		}
		batch.Queue(`INSERT INTO levels (id, title, difficulty, description) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, difficulty = EXCLUDED.difficulty, description = EXCLUDED.description`,
			level.ID, level.Title, string(level.Difficulty), level.Description)
	}
	results := c.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range levels {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert levels: %w", err)
		}
	}
	return nil
}
