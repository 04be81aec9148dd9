// internal/critique/critique.go
package critique

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/api/schemas"
	"github.com/xkilldash9x/flux-cli/internal/llmutil"
)

// ErrIncompleteCritique is returned when the reply decodes but lacks a field.
var ErrIncompleteCritique = errors.New("critique reply is missing required fields")

const systemPrompt = `You are a high-concept avant-garde art critic and digital philosopher.
Analyze the visual structure of the provided image as if it were a topological data sculpture.
Use abstract, restrained, and sophisticated language typical of high-end design magazines
(like Wallpaper*, Open Processing, or TouchDesigner forums).
Focus on geometry, flow, entropy, and signal.`

const userPrompt = "Generate a critique of this form."

// Request describes one frame submitted for critique.
type Request struct {
	PNG        []byte
	SnapshotID string
	Source     string
}

// Service turns rendered frames into critiques.
type Service struct {
	logger *zap.Logger
	llm    schemas.LLMClient
	store  schemas.CritiqueStore
	model  string
}

// Option configures a Service.
type Option func(*Service)

// WithStore archives every critique, fallbacks included.
func WithStore(store schemas.CritiqueStore) Option {
	return func(s *Service) { s.store = store }
}

// WithModelName records the model name alongside archived critiques.
func WithModelName(model string) Option {
	return func(s *Service) { s.model = model }
}

// NewService initializes the critique service.
func NewService(logger *zap.Logger, llm schemas.LLMClient, opts ...Option) (*Service, error) {
	if llm == nil {
		return nil, errors.New("critique service requires an LLM client")
	}
	s := &Service{
		logger: logger.Named("critic"),
		llm:    llm,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Critique asks the model for a critique of png. Any generation or decode
// failure yields the fallback critique; the error is logged, not returned.
func (s *Service) Critique(ctx context.Context, png []byte) (schemas.Critique, error) {
	rec, err := s.Review(ctx, Request{PNG: png})
	return rec.Critique, err
}

// Review is Critique with provenance. The returned error is non-nil only when
// ctx was cancelled or the critique could not be archived.
func (s *Service) Review(ctx context.Context, req Request) (schemas.CritiqueRecord, error) {
	rec := schemas.CritiqueRecord{
		ID:         uuid.NewString(),
		SnapshotID: req.SnapshotID,
		Source:     req.Source,
		Model:      s.model,
		CreatedAt:  time.Now().UTC(),
	}

	s.logger.Info("Requesting critique.", zap.String("critique_id", rec.ID), zap.Int("png_bytes", len(req.PNG)))
	c, err := s.generate(ctx, req.PNG)
	if err != nil {
		s.logger.Error("Gemini critique failed, using fallback.", zap.Error(err))
		c = schemas.FallbackCritique()
		rec.Fallback = true
	}
	rec.Critique = c

	if ctxErr := ctx.Err(); ctxErr != nil {
		return rec, ctxErr
	}
	if s.store != nil {
		if err := s.store.SaveCritique(ctx, rec); err != nil {
			return rec, fmt.Errorf("failed to archive critique: %w", err)
		}
	}
	return rec, nil
}

// History returns the most recent archived critiques.
func (s *Service) History(ctx context.Context, limit int) ([]schemas.CritiqueRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.RecentCritiques(ctx, limit)
}

func (s *Service) generate(ctx context.Context, png []byte) (schemas.Critique, error) {
	if len(png) == 0 {
		return schemas.Critique{}, errors.New("no frame to critique")
	}
	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Attachments:  []schemas.Attachment{{MIMEType: "image/png", Data: png}},
		Tier:         schemas.TierFast,
		Options: schemas.GenerationOptions{
			ForceJSONFormat: true,
			ResponseFields:  schemas.CritiqueFields(),
		},
	}

	response, err := s.llm.Generate(ctx, req)
	if err != nil {
		return schemas.Critique{}, fmt.Errorf("LLM generation failed: %w", err)
	}
	return parseCritique(response)
}

// parseCritique decodes the model's JSON, tolerating a markdown fence.
func parseCritique(response string) (schemas.Critique, error) {
	c, err := llmutil.ParseJSONObject[schemas.Critique](response)
	if err != nil {
		return schemas.Critique{}, err
	}
	if c.Title == "" || c.Description == "" || c.Mood == "" {
		return schemas.Critique{}, ErrIncompleteCritique
	}
	return c, nil
}
