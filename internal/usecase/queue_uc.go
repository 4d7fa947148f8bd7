package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/domain/ports/repository"
	"sora-batch-studio/internal/infra/logging"
	"sora-batch-studio/internal/infra/metrics"
	"sora-batch-studio/internal/infra/worker"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// QueueUseCase owns the task state machine and the per-tick scheduling
// pass: admission control, selection, submission and polling. All decisions
// in one tick are computed against a single snapshot of the task store and
// the settings; patches are applied by identifier and tolerate tasks that
// were deleted mid-tick.
type QueueUseCase struct {
	tasks      repository.TaskRepository
	settings   repository.SettingsRepository
	characters repository.CharacterRepository
	provider   adapter.VideoProvider
	sink       adapter.NotificationSink
	saver      adapter.VideoMaterializer
	pool       *worker.Pool
	log        *zerolog.Logger
}

func NewQueueUseCase(
	tasks repository.TaskRepository,
	settings repository.SettingsRepository,
	characters repository.CharacterRepository,
	provider adapter.VideoProvider,
	sink adapter.NotificationSink,
	saver adapter.VideoMaterializer,
	pool *worker.Pool,
	logger *zerolog.Logger,
) *QueueUseCase {
	return &QueueUseCase{
		tasks:      tasks,
		settings:   settings,
		characters: characters,
		provider:   provider,
		sink:       sink,
		saver:      saver,
		pool:       pool,
		log:        logger,
	}
}

// Enqueue appends new PENDING tasks, one per prompt, each carrying a frozen
// snapshot of the current settings. A missing credential is rejected before
// any task is created.
func (q *QueueUseCase) Enqueue(ctx context.Context, prompts []string, remixSourceID string) ([]model.Task, error) {
	if len(prompts) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	cfg, err := q.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	now := time.Now()
	tasks := make([]model.Task, 0, len(prompts))
	for _, p := range prompts {
		tasks = append(tasks, model.Task{
			ID:        uuid.NewString(),
			Prompt:    p,
			Status:    model.TaskStatusPending,
			CreatedAt: now,
			Params: model.SubmissionParams{
				Settings:      cfg,
				IsRemix:       remixSourceID != "",
				RemixSourceID: remixSourceID,
			},
		})
	}
	if err := q.tasks.Append(ctx, tasks...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Retry moves a FAILED task back to PENDING, clearing its failure outcome.
func (q *QueueUseCase) Retry(ctx context.Context, id string) error {
	var invalid model.TaskStatus
	found, err := q.tasks.Update(ctx, id, func(t *model.Task) {
		if t.Status != model.TaskStatusFailed {
			invalid = t.Status
			return
		}
		t.ResetForRetry()
	})
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotFound
	}
	if invalid != "" {
		return fmt.Errorf("%w: retry from %s", domain.ErrInvalidTransition, invalid)
	}
	metrics.IncTransition(string(model.TaskStatusFailed), string(model.TaskStatusPending))
	return nil
}

func (q *QueueUseCase) Remove(ctx context.Context, id string) error {
	return q.tasks.Remove(ctx, id)
}

func (q *QueueUseCase) List(ctx context.Context) ([]model.Task, error) {
	return q.tasks.List(ctx)
}

// Tick runs one scheduling pass. The submission sub-step and the polling
// sub-step are independent; both always run.
func (q *QueueUseCase) Tick(ctx context.Context) {
	ctx = logging.WithTraceID(ctx, ulid.Make().String())
	log := logging.With(ctx, q.log)

	cfg, err := q.settings.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("tick: settings unavailable")
		return
	}
	snapshot, err := q.tasks.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("tick: task snapshot unavailable")
		return
	}

	q.submitNext(ctx, snapshot, cfg, log)
	q.pollActive(ctx, snapshot, cfg, log)
}

// submitNext admits at most one PENDING task per tick. Keeping the
// admission rate at one per tick even when capacity allows more makes
// provider-side burst behavior predictable.
func (q *QueueUseCase) submitNext(ctx context.Context, snapshot []model.Task, cfg model.Settings, log *zerolog.Logger) {
	active := 0
	for _, t := range snapshot {
		if t.Status.Active() {
			active++
		}
	}
	if active >= cfg.Concurrency {
		return
	}

	var next *model.Task
	for i := range snapshot {
		if snapshot[i].Status == model.TaskStatusPending {
			next = &snapshot[i]
			break
		}
	}
	if next == nil {
		return
	}

	// Claim before the network call so a later tick cannot pick the same
	// task twice.
	claimed, err := q.tasks.Update(ctx, next.ID, func(t *model.Task) {
		t.Status = model.TaskStatusSubmitting
	})
	if err != nil || !claimed {
		return
	}
	metrics.IncTransition(string(model.TaskStatusPending), string(model.TaskStatusSubmitting))

	var result adapter.SubmitResult
	if next.Params.IsRemix && next.Params.RemixSourceID != "" {
		result = q.provider.Remix(ctx, next.Params.RemixSourceID, next.Prompt, cfg)
	} else {
		prompt, err := q.withCharacterTags(ctx, next.Prompt, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("character library unavailable; submitting untagged prompt")
			prompt = next.Prompt
		}
		result = q.provider.Submit(ctx, prompt, cfg)
	}

	if result.OK && result.ProviderTaskID != "" {
		_, _ = q.tasks.Update(ctx, next.ID, func(t *model.Task) {
			t.Status = model.TaskStatusQueued
			t.ProviderTaskID = result.ProviderTaskID
			t.Params.DebugPayload = result.DebugPayload
		})
		metrics.IncTransition(string(model.TaskStatusSubmitting), string(model.TaskStatusQueued))
		metrics.IncSubmission(cfg.Provider, "queued")
		q.sink.Notify(ctx, adapter.Event{
			Type:           adapter.EventTaskSubmitted,
			TaskID:         next.ID,
			ProviderTaskID: result.ProviderTaskID,
		})
		return
	}

	_, _ = q.tasks.Update(ctx, next.ID, func(t *model.Task) {
		t.Status = model.TaskStatusFailed
		t.Error = result.Error
		t.Params.DebugPayload = result.DebugPayload
	})
	metrics.IncTransition(string(model.TaskStatusSubmitting), string(model.TaskStatusFailed))
	metrics.IncSubmission(cfg.Provider, "failed")
	log.Warn().Str("task_id", next.ID).Str("error", result.Error).Msg("submission failed")
}

// pollActive dispatches one poll per in-flight task. Polls run on the
// worker pool so one slow provider round-trip does not delay the others;
// the tick itself only dispatches.
func (q *QueueUseCase) pollActive(ctx context.Context, snapshot []model.Task, cfg model.Settings, log *zerolog.Logger) {
	for _, t := range snapshot {
		if t.ProviderTaskID == "" {
			continue
		}
		if t.Status != model.TaskStatusQueued && t.Status != model.TaskStatusProcessing {
			continue
		}
		task := t
		if err := q.pool.Submit(func(ctx context.Context) error {
			q.pollOne(ctx, task, cfg)
			return nil
		}); err != nil {
			// Saturated pool: skip, the next tick polls again.
			log.Debug().Str("task_id", task.ID).Msg("poll skipped, pool saturated")
		}
	}
}

func (q *QueueUseCase) pollOne(ctx context.Context, task model.Task, cfg model.Settings) {
	start := time.Now()
	result := q.provider.Poll(ctx, task.ProviderTaskID, cfg)
	metrics.ObservePollLatency(cfg.Provider, float64(time.Since(start).Milliseconds()))
	metrics.IncPoll(cfg.Provider, string(result.Status))

	if result.Status == task.Status {
		return
	}

	applied := false
	from := task.Status
	_, _ = q.tasks.Update(ctx, task.ID, func(t *model.Task) {
		// Re-check against the live record: the task may have been retried
		// or completed by a stray in-flight poll since the snapshot.
		if !t.Status.CanTransitionTo(result.Status) {
			return
		}
		from = t.Status
		t.Status = result.Status
		t.VideoURL = result.VideoURL
		t.Error = result.Error
		t.RawResponse = result.Raw
		if result.Status == model.TaskStatusCompleted {
			t.CompletedAt = time.Now()
		}
		applied = true
	})
	if !applied {
		return
	}
	metrics.IncTransition(string(from), string(result.Status))

	switch result.Status {
	case model.TaskStatusCompleted:
		q.sink.Notify(ctx, adapter.Event{
			Type:           adapter.EventTaskCompleted,
			TaskID:         task.ID,
			ProviderTaskID: task.ProviderTaskID,
			URL:            result.VideoURL,
		})
		if cfg.AutoDownload && result.VideoURL != "" {
			filename := fmt.Sprintf("sora_%s.mp4", task.ProviderTaskID)
			go q.saver.Save(context.WithoutCancel(ctx), result.VideoURL, filename)
		}
	case model.TaskStatusFailed:
		q.sink.Notify(ctx, adapter.Event{
			Type:           adapter.EventTaskFailed,
			TaskID:         task.ID,
			ProviderTaskID: task.ProviderTaskID,
			Detail:         result.Error,
		})
	}
}

// withCharacterTags appends the handles of selected characters that are not
// already substring-present in the prompt, keeping repeated submission
// attempts idempotent.
func (q *QueueUseCase) withCharacterTags(ctx context.Context, prompt string, cfg model.Settings) (string, error) {
	if len(cfg.SelectedCharacterIDs) == 0 {
		return prompt, nil
	}
	chars, err := q.characters.List(ctx)
	if err != nil {
		return prompt, err
	}
	selected := make(map[string]struct{}, len(cfg.SelectedCharacterIDs))
	for _, id := range cfg.SelectedCharacterIDs {
		selected[id] = struct{}{}
	}
	var tags []string
	for _, c := range chars {
		if _, ok := selected[c.ID]; !ok {
			continue
		}
		if c.Handle == "" || strings.Contains(prompt, c.Handle) {
			continue
		}
		tags = append(tags, c.Handle)
	}
	if len(tags) == 0 {
		return prompt, nil
	}
	return prompt + " " + strings.Join(tags, " "), nil
}
