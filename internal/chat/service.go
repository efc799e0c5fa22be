package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/apperr"
)

// ErrEmptyQuery is returned for blank questions.
var ErrEmptyQuery = fmt.Errorf("query is required: %w", apperr.ErrInvalidInput)

// Source says which stage produced an answer.
type Source string

// Answer sources.
const (
	SourceRule          Source = "rule"
	SourceKnowledgeBase Source = "knowledge_base"
	SourceLLM           Source = "llm"
	SourceDefault       Source = "default"
)

// Answer is a chat reply.
type Answer struct {
	Response string `json:"response"`
	Source   Source `json:"source"`
}

// Generator produces free-text completions.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ServiceConfig holds configuration for the chat service.
type ServiceConfig struct {
	Knowledge *Knowledge

	// Index is optional. Without it the FAQ stage is skipped.
	Index *Index

	// LLM is optional. Without it unanswered questions get the greeting.
	LLM Generator

	// LLMTimeout bounds one LLM call (default: 60s).
	LLMTimeout time.Duration

	Logger zerolog.Logger
}

// Service answers questions. It holds no per-question state.
type Service struct {
	rules      []Rule
	greeting   string
	index      *Index
	llm        Generator
	llmTimeout time.Duration
	logger     zerolog.Logger
}

// NewService creates a new chat service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s := &Service{
		index:      cfg.Index,
		llm:        cfg.LLM,
		llmTimeout: timeout,
		logger:     cfg.Logger,
	}
	if cfg.Knowledge != nil {
		s.rules = cfg.Knowledge.Rules
		s.greeting = strings.TrimSpace(cfg.Knowledge.Greeting)
	}
	return s
}

// LLMEnabled reports whether an LLM fallback is configured.
func (s *Service) LLMEnabled() bool {
	return s.llm != nil
}

// Answer tries keyword rules, then the FAQ index, then the LLM, then
// falls back to the greeting.
func (s *Service) Answer(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	lowered := strings.ToLower(query)

	for _, r := range s.rules {
		if r.Match(lowered) {
			s.logger.Debug().Str("rule", r.Name).Msg("chat answered by rule")
			return &Answer{Response: strings.TrimSpace(r.Response), Source: SourceRule}, nil
		}
	}

	if s.index != nil {
		entry, score, ok, err := s.index.Search(ctx, query)
		if err != nil {
			s.logger.Warn().Err(err).Msg("faq search failed")
		} else if ok {
			s.logger.Debug().
				Str("faq", entry.ID).
				Float64("score", score).
				Msg("chat answered from knowledge base")
			return &Answer{Response: strings.TrimSpace(entry.Answer), Source: SourceKnowledgeBase}, nil
		}
	}

	if s.llm != nil {
		llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
		defer cancel()

		text, err := s.llm.Generate(llmCtx, BuildPrompt(query))
		if err == nil {
			return &Answer{Response: text, Source: SourceLLM}, nil
		}
		s.logger.Warn().Err(err).Msg("llm fallback failed, using greeting")
	}

	return &Answer{Response: s.greeting, Source: SourceDefault}, nil
}
