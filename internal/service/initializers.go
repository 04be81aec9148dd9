// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/api/schemas"
	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/llmclient"
	"github.com/xkilldash9x/flux-cli/internal/network"
	"github.com/xkilldash9x/flux-cli/internal/pointer"
	"github.com/xkilldash9x/flux-cli/internal/store"
)

// NewScript builds the synthetic pointer described by driver.pointer.
func NewScript(cfg config.Interface) (*pointer.Script, error) {
	mode, err := pointer.ParseMode(cfg.Driver().Pointer)
	if err != nil {
		return nil, err
	}
	vp := cfg.Viewport()
	return pointer.NewScript(pointer.ScriptConfig{
		Mode:   mode,
		Width:  float64(vp.Width),
		Height: float64(vp.Height),
		FPS:    cfg.Driver().FPS,
		Seed:   cfg.Driver().Seed,
	}), nil
}

// InitializeLLMClient creates the critic's LLM client. Requests go through
// the shared network stack with the critic's own timeout.
func InitializeLLMClient(ctx context.Context, cfg config.Interface, logger *zap.Logger) (schemas.LLMClient, error) {
	cc := network.ClientConfigFrom(cfg.Network(), logger)
	if t := cfg.Critic().APITimeout; t > 0 {
		cc.RequestTimeout = t
	}
	httpClient := network.NewClient(cc)

	llmClient, err := llmclient.NewClient(ctx, cfg.Critic(), httpClient.Client, logger)
	if err != nil {
		logger.Error("Failed to initialize LLM client. Critiques are unavailable.", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return llmClient, nil
}

// InitializeStore connects the critique archive and ensures its table
// exists. The returned cleanup closes the pool.
func InitializeStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Store, func(), error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		logger.Info("Closing PostgreSQL connection pool (critique archive).")
		pool.Close()
	}
	return st, cleanup, nil
}
