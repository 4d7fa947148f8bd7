package usecase

import (
	"context"
	"errors"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/domain/ports/repository"
	"sora-batch-studio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// HistoryUseCase imports remote task records not yet known locally.
// Existing local tasks always win: a remote record whose provider id is
// already present is discarded untouched.
type HistoryUseCase struct {
	tasks    repository.TaskRepository
	settings repository.SettingsRepository
	provider adapter.VideoProvider
	sink     adapter.NotificationSink
	log      *zerolog.Logger
}

func NewHistoryUseCase(
	tasks repository.TaskRepository,
	settings repository.SettingsRepository,
	provider adapter.VideoProvider,
	sink adapter.NotificationSink,
	logger *zerolog.Logger,
) *HistoryUseCase {
	return &HistoryUseCase{
		tasks:    tasks,
		settings: settings,
		provider: provider,
		sink:     sink,
		log:      logger,
	}
}

// Sync fetches remote history once and appends unknown tasks. It returns
// the number of tasks imported. domain.ErrUnauthorized is passed through so
// callers can redirect the user to fix credentials; adapters already degrade
// plain transport failures to an empty listing.
func (uc *HistoryUseCase) Sync(ctx context.Context) (int, error) {
	cfg, err := uc.settings.Get(ctx)
	if err != nil {
		return 0, err
	}

	remote, err := uc.provider.ListHistory(ctx, cfg)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return 0, err
		}
		uc.log.Warn().Err(err).Msg("history listing failed")
		return 0, err
	}
	if len(remote) == 0 {
		uc.sink.Notify(ctx, adapter.Event{Type: adapter.EventHistorySynced, Count: 0})
		return 0, nil
	}

	local, err := uc.tasks.List(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(local))
	for _, t := range local {
		if t.ProviderTaskID != "" {
			known[t.ProviderTaskID] = struct{}{}
		}
	}

	imported := remote[:0]
	for _, t := range remote {
		if _, exists := known[t.ProviderTaskID]; exists {
			continue
		}
		imported = append(imported, t)
	}
	if len(imported) > 0 {
		if err := uc.tasks.Append(ctx, imported...); err != nil {
			return 0, err
		}
		metrics.AddHistorySynced(len(imported))
	}
	uc.sink.Notify(ctx, adapter.Event{Type: adapter.EventHistorySynced, Count: len(imported)})
	uc.log.Info().Int("imported", len(imported)).Int("remote", len(remote)).Msg("history reconciled")
	return len(imported), nil
}
