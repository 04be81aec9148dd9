// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/api/schemas"
	"github.com/xkilldash9x/flux-cli/internal/config"
)

// NewClient builds the tier router for the critic. The fast tier uses
// cfg.Model; the powerful tier uses cfg.PowerfulModel when set and shares
// the fast client otherwise.
func NewClient(ctx context.Context, cfg config.CriticConfig, httpClient *http.Client, logger *zap.Logger) (schemas.LLMClient, error) {
	fast, err := NewGeminiClient(ctx, cfg, cfg.Model, httpClient, logger)
	if err != nil {
		return nil, err
	}

	var powerful schemas.LLMClient = fast
	if cfg.PowerfulModel != "" && cfg.PowerfulModel != cfg.Model {
		p, err := NewGeminiClient(ctx, cfg, cfg.PowerfulModel, httpClient, logger)
		if err != nil {
			return nil, err
		}
		powerful = p
	}
	return NewLLMRouter(logger, fast, powerful)
}
