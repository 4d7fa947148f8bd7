package usecase

import (
	"context"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/domain/ports/repository"
)

// SettingsUseCase exposes the persisted generation settings and the
// provider account balance.
type SettingsUseCase struct {
	settings repository.SettingsRepository
	language repository.LanguageRepository
	provider adapter.VideoProvider
}

func NewSettingsUseCase(
	settings repository.SettingsRepository,
	language repository.LanguageRepository,
	provider adapter.VideoProvider,
) *SettingsUseCase {
	return &SettingsUseCase{settings: settings, language: language, provider: provider}
}

func (uc *SettingsUseCase) Get(ctx context.Context) (model.Settings, error) {
	return uc.settings.Get(ctx)
}

// Patch merges the given fields into the stored settings and returns the
// effective merged record.
func (uc *SettingsUseCase) Patch(ctx context.Context, fields map[string]any) (model.Settings, error) {
	if len(fields) == 0 {
		return model.Settings{}, domain.ErrInvalidArgument
	}
	return uc.settings.Patch(ctx, fields)
}

func (uc *SettingsUseCase) Language(ctx context.Context) (string, error) {
	return uc.language.Get(ctx)
}

func (uc *SettingsUseCase) SetLanguage(ctx context.Context, lang string) error {
	if lang != "zh" && lang != "en" {
		return domain.ErrInvalidArgument
	}
	return uc.language.Set(ctx, lang)
}

// CheckBalance queries the provider quota where supported.
func (uc *SettingsUseCase) CheckBalance(ctx context.Context) (adapter.Balance, error) {
	cfg, err := uc.settings.Get(ctx)
	if err != nil {
		return adapter.Balance{}, err
	}
	if cfg.APIKey == "" {
		return adapter.Balance{}, domain.ErrMissingAPIKey
	}
	return uc.provider.Balance(ctx, cfg)
}
