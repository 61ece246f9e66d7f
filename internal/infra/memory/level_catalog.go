package memory

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"quiz-journey/internal/domain"
)

// LevelCatalog is a read-only catalog held in memory.
type LevelCatalog struct {
	levels []domain.Level
	byID   map[int]domain.Level
}

func NewLevelCatalog(levels []domain.Level) (*LevelCatalog, error) {
	c := &LevelCatalog{byID: make(map[int]domain.Level, len(levels))}
	for _, level := range levels {
		if level.ID < 1 || level.ID > domain.MaxLevels {
			return nil, fmt.Errorf("level %d outside 1..%d", level.ID, domain.MaxLevels)
		}
		if !level.Difficulty.Valid() {
			return nil, fmt.Errorf("level %d has unknown difficulty %q", level.ID, level.Difficulty)
		}
		if _, dup := c.byID[level.ID]; dup {
			return nil, fmt.Errorf("duplicate level %d", level.ID)
		}
		c.byID[level.ID] = level
		c.levels = append(c.levels, level)
	}
	sort.Slice(c.levels, func(i, j int) bool { return c.levels[i].ID < c.levels[j].ID })
	return c, nil
}

// LoadLevelCatalog reads a YAML list of levels from path.
func LoadLevelCatalog(path string) (*LevelCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level catalog: %w", err)
	}
	var file struct {
		Levels []domain.Level `yaml:"levels"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse level catalog: %w", err)
	}
	return NewLevelCatalog(file.Levels)
}

func (c *LevelCatalog) ListLevels(_ context.Context) ([]domain.Level, error) {
	out := make([]domain.Level, len(c.levels))
	copy(out, c.levels)
	return out, nil
}

func (c *LevelCatalog) GetLevel(_ context.Context, id int) (domain.Level, error) {
	level, ok := c.byID[id]
	if !ok {
		return domain.Level{}, domain.ErrLevelNotFound
	}
	return level, nil
}
