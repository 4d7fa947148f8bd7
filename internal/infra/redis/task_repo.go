package redis

import (
	"context"
	"encoding/json"
	"sync"

	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

const tasksKey = "sora:tasks"

var _ repository.TaskRepository = (*TaskRepo)(nil)

// TaskRepo persists the whole ordered task collection as one JSON snapshot
// under a fixed key. Every mutation is read-modify-replace under a single
// writer lock, which keeps the persisted snapshot and any reader's view
// consistent and guarantees each task is observed at most once per tick.
type TaskRepo struct {
	client RedisClient
	log    *zerolog.Logger

	mu sync.Mutex
}

func NewTaskRepo(client RedisClient, logger *zerolog.Logger) *TaskRepo {
	return &TaskRepo{client: client, log: logger}
}

// load hydrates the collection from the fixed key. A missing key or
// malformed stored data is treated as an empty collection, never fatal.
func (r *TaskRepo) load(ctx context.Context) ([]model.Task, error) {
	data, err := r.client.Get(ctx, tasksKey)
	if err != nil {
		if err == Nil {
			return []model.Task{}, nil
		}
		return nil, err
	}
	var tasks []model.Task
	if err := json.Unmarshal([]byte(data), &tasks); err != nil {
		r.log.Warn().Err(err).Msg("stored task snapshot malformed; starting empty")
		return []model.Task{}, nil
	}
	return tasks, nil
}

func (r *TaskRepo) store(ctx context.Context, tasks []model.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, tasksKey, data, 0)
}

func (r *TaskRepo) List(ctx context.Context) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *TaskRepo) Append(ctx context.Context, tasks ...model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, err := r.load(ctx)
	if err != nil {
		return err
	}
	return r.store(ctx, append(current, tasks...))
}

func (r *TaskRepo) Update(ctx context.Context, id string, fn func(*model.Task)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	for i := range current {
		if current[i].ID == id {
			fn(&current[i])
			return true, r.store(ctx, current)
		}
	}
	// Target may have been deleted by a concurrent edit; tolerate it.
	return false, nil
}

func (r *TaskRepo) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, err := r.load(ctx)
	if err != nil {
		return err
	}
	next := current[:0]
	for _, t := range current {
		if t.ID != id {
			next = append(next, t)
		}
	}
	return r.store(ctx, next)
}
