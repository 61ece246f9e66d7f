package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quiz-journey/internal/domain"
)

// StaticQuestionSource serves fixed batches keyed by topic title; the empty
// title holds the pool used for unthemed quizzes. Useful for tests, demos and
// offline play.
type StaticQuestionSource struct {
	batches map[string][]domain.RawQuestion
}

func NewStaticQuestionSource(batches map[string][]domain.RawQuestion) *StaticQuestionSource {
	return &StaticQuestionSource{batches: batches}
}

// LoadStaticQuestionSource reads a question bank from a YAML file with a
// "random" pool and per-title "topics" batches. Every batch is validated the
// same way generated batches are.
func LoadStaticQuestionSource(path string) (*StaticQuestionSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	var file struct {
		Random []domain.RawQuestion            `yaml:"random"`
		Topics map[string][]domain.RawQuestion `yaml:"topics"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	batches := make(map[string][]domain.RawQuestion, len(file.Topics)+1)
	for title, batch := range file.Topics {
		if title == "" {
			return nil, fmt.Errorf("question bank: topic without title")
		}
		batches[title] = batch
	}
	if len(file.Random) > 0 {
		batches[""] = file.Random
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("question bank %s is empty", path)
	}
	for title, batch := range batches {
		if err := domain.ValidateRaw(batch); err != nil {
			return nil, fmt.Errorf("question bank topic %q: %w", title, err)
		}
	}
	return NewStaticQuestionSource(batches), nil
}

func (s *StaticQuestionSource) Fetch(_ context.Context, criteria domain.Criteria) ([]domain.RawQuestion, error) {
	batch, ok := s.batches[criteria.Title]
	if !ok || len(batch) == 0 {
		return nil, &domain.GenerationError{Reason: "no questions for topic " + criteria.Title}
	}
	if criteria.Count > 0 && criteria.Count < len(batch) {
		batch = batch[:criteria.Count]
	}
	return cloneBatch(batch), nil
}
