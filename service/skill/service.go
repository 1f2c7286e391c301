// Package skill offers generator-backed helpers that operate on persisted
// items: drafting an email reply and summarising a task.  Skills read
// through the queue and never mutate records, so they are safe to invoke at
// any point of an item's lifecycle.
package skill

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/model/types"
	"github.com/taskwell/taskwell/service/queue"
)

// Option customises the skill service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service exposes the helper skills.
type Service struct {
	queue     *queue.Service
	generator types.Generator
	logger    zerolog.Logger
}

// New creates a skill service over the supplied queue and generator.
func New(q *queue.Service, generator types.Generator, options ...Option) *Service {
	s := &Service{
		queue:     q,
		generator: generator,
		logger:    zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// DraftReply generates a reply draft for the named email item in
// needs-action. The tone is free-form guidance (professional, friendly,
// formal, casual).
func (s *Service) DraftReply(ctx context.Context, name, tone string) (string, error) {
	item, err := s.loadItem(ctx, name)
	if err != nil {
		return "", err
	}
	if tone == "" {
		tone = "professional"
	}
	s.logger.Debug().Str("item", name).Str("tone", tone).Msg("drafting reply")

	options := &types.GenerateOptions{
		SystemPrompt: "You are an email writing assistant. Draft clear, helpful replies.\n" +
			"Tone: " + tone + "\n" +
			"Guidelines:\n" +
			"- Be concise and clear\n" +
			"- Address all points raised in the original email\n" +
			"- Include proper greeting and closing",
		Temperature: 0.7,
	}
	sender := item.Sender
	if sender == "" {
		sender = "there"
	}
	prompt := fmt.Sprintf("Draft a reply to this email:\n\nFrom: %s\nSubject: %s\n\n%s", sender, item.Subject, item.Body)
	return s.generator.Generate(ctx, prompt, options)
}

// Summarize produces a concise summary of the named item, bounded by
// maxWords (0 applies the default of 200).
func (s *Service) Summarize(ctx context.Context, name string, maxWords int) (string, error) {
	item, err := s.loadItem(ctx, name)
	if err != nil {
		return "", err
	}
	if maxWords <= 0 {
		maxWords = 200
	}
	s.logger.Debug().Str("item", name).Msg("summarizing task")

	options := &types.GenerateOptions{
		SystemPrompt: "You are a task summarization assistant. Create concise, actionable " +
			"summaries focused on key action items, deadlines and priority.",
		Temperature: 0.3,
	}
	prompt := fmt.Sprintf("Summarize this task in %d words or less:\n\nSubject: %s\nPriority: %s\n\n%s",
		maxWords, item.Subject, item.Priority, item.Body)
	return s.generator.Generate(ctx, prompt, options)
}

func (s *Service) loadItem(ctx context.Context, name string) (*model.Item, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	rec, err := s.queue.Get(ctx, queue.NeedsAction, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %v: %w", name, err)
	}
	if rec.String("kind") != model.KindItem {
		return nil, fmt.Errorf("record %v is not an item", name)
	}
	return model.ItemFromRecord(rec), nil
}
