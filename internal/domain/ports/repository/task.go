package repository

import (
	"context"

	"sora-batch-studio/internal/domain/model"
)

// TaskRepository owns the ordered task collection. Mutations are
// whole-collection replacements so the persisted snapshot and the in-memory
// view stay consistent; implementations must serialize writers.
type TaskRepository interface {
	// List returns the tasks in insertion order.
	List(ctx context.Context) ([]model.Task, error)

	// Append adds new tasks to the end of the collection.
	Append(ctx context.Context, tasks ...model.Task) error

	// Update applies fn to the task with the given id under the writer lock
	// and persists the result. A missing id is a no-op and returns false,
	// tolerating concurrent deletion.
	Update(ctx context.Context, id string, fn func(*model.Task)) (bool, error)

	// Remove deletes the task with the given id; unknown ids are a no-op.
	Remove(ctx context.Context, id string) error
}

// SettingsRepository persists the generation settings under a fixed key.
// Get shallow-merges the stored record over built-in defaults; Patch merges
// the given raw fields into the stored record, preserving fields it does not
// know about.
type SettingsRepository interface {
	Get(ctx context.Context) (model.Settings, error)
	Patch(ctx context.Context, fields map[string]any) (model.Settings, error)
}

// CharacterRepository persists the character library.
type CharacterRepository interface {
	List(ctx context.Context) ([]model.Character, error)
	Save(ctx context.Context, c model.Character) error
	Delete(ctx context.Context, id string) error
}

// PromptRepository persists the prompt library.
type PromptRepository interface {
	List(ctx context.Context) ([]model.PromptTemplate, error)
	Save(ctx context.Context, p model.PromptTemplate) error
	Delete(ctx context.Context, id string) error
}

// LanguageRepository persists the UI language selection.
type LanguageRepository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, lang string) error
}
