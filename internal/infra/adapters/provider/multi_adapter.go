// File: internal/infra/adapters/provider/multi_adapter.go
package provider

import (
	"context"
	"strings"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"
)

var _ adapter.VideoProvider = (*MultiProviderAdapter)(nil)

// MultiProviderAdapter dispatches each operation to the concrete provider
// named in the settings snapshot. An unknown provider name yields explicit
// "unsupported" results instead of a guess.
type MultiProviderAdapter struct {
	defaultProvider string
	byProvider      map[string]adapter.VideoProvider
}

func NewMultiProviderAdapter(defaultProvider string, byProvider map[string]adapter.VideoProvider) *MultiProviderAdapter {
	return &MultiProviderAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
	}
}

func (m *MultiProviderAdapter) pick(cfg model.Settings) adapter.VideoProvider {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = m.defaultProvider
	}
	return m.byProvider[name]
}

func (m *MultiProviderAdapter) Name() string { return "multi" }

func (m *MultiProviderAdapter) Submit(ctx context.Context, prompt string, cfg model.Settings) adapter.SubmitResult {
	p := m.pick(cfg)
	if p == nil {
		return adapter.SubmitResult{Error: "unknown provider: " + cfg.Provider}
	}
	return p.Submit(ctx, prompt, cfg)
}

func (m *MultiProviderAdapter) Remix(ctx context.Context, providerTaskID, prompt string, cfg model.Settings) adapter.SubmitResult {
	p := m.pick(cfg)
	if p == nil {
		return adapter.SubmitResult{Error: "unknown provider: " + cfg.Provider}
	}
	return p.Remix(ctx, providerTaskID, prompt, cfg)
}

func (m *MultiProviderAdapter) Poll(ctx context.Context, providerTaskID string, cfg model.Settings) adapter.PollResult {
	p := m.pick(cfg)
	if p == nil {
		// Hold the task rather than failing it over a configuration slip.
		return adapter.PollResult{Status: model.TaskStatusProcessing, Error: "unknown provider: " + cfg.Provider}
	}
	return p.Poll(ctx, providerTaskID, cfg)
}

func (m *MultiProviderAdapter) ListHistory(ctx context.Context, cfg model.Settings) ([]model.Task, error) {
	p := m.pick(cfg)
	if p == nil {
		return []model.Task{}, nil
	}
	return p.ListHistory(ctx, cfg)
}

func (m *MultiProviderAdapter) Balance(ctx context.Context, cfg model.Settings) (adapter.Balance, error) {
	p := m.pick(cfg)
	if p == nil {
		return adapter.Balance{}, domain.ErrUnsupported
	}
	return p.Balance(ctx, cfg)
}
