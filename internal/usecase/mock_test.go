//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/domain/ports/repository"
	"sora-batch-studio/internal/infra/worker"
)

// =============================
// Repositories
// =============================

// MockTaskRepo is an in-memory task collection with the same update
// semantics as the redis-backed implementation.
type MockTaskRepo struct {
	mu    sync.Mutex
	Tasks []model.Task

	ListFunc   func(ctx context.Context) ([]model.Task, error)
	AppendFunc func(ctx context.Context, tasks ...model.Task) error
	UpdateFunc func(ctx context.Context, id string, fn func(*model.Task)) (bool, error)
	RemoveFunc func(ctx context.Context, id string) error
}

var _ repository.TaskRepository = (*MockTaskRepo)(nil)

func NewMockTaskRepo(seed ...model.Task) *MockTaskRepo {
	return &MockTaskRepo{Tasks: append([]model.Task(nil), seed...)}
}

func (m *MockTaskRepo) List(ctx context.Context) ([]model.Task, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task(nil), m.Tasks...), nil
}

func (m *MockTaskRepo) Append(ctx context.Context, tasks ...model.Task) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tasks...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, tasks...)
	return nil
}

func (m *MockTaskRepo) Update(ctx context.Context, id string, fn func(*model.Task)) (bool, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Tasks {
		if m.Tasks[i].ID == id {
			fn(&m.Tasks[i])
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTaskRepo) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Tasks {
		if m.Tasks[i].ID == id {
			m.Tasks = append(m.Tasks[:i], m.Tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

// Get returns a copy of the task with the given id, for assertions.
func (m *MockTaskRepo) Get(t *testing.T, id string) model.Task {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.Tasks {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %s not found", id)
	return model.Task{}
}

// ---- Settings ----

type MockSettingsRepo struct {
	mu       sync.Mutex
	Settings model.Settings

	GetFunc   func(ctx context.Context) (model.Settings, error)
	PatchFunc func(ctx context.Context, fields map[string]any) (model.Settings, error)
}

var _ repository.SettingsRepository = (*MockSettingsRepo)(nil)

func NewMockSettingsRepo() *MockSettingsRepo {
	cfg := model.DefaultSettings()
	cfg.APIKey = "test-key"
	return &MockSettingsRepo{Settings: cfg}
}

func (m *MockSettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Settings, nil
}

func (m *MockSettingsRepo) Patch(ctx context.Context, fields map[string]any) (model.Settings, error) {
	if m.PatchFunc != nil {
		return m.PatchFunc(ctx, fields)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Settings, nil
}

// ---- Characters ----

type MockCharacterRepo struct {
	mu         sync.Mutex
	Characters []model.Character

	ListFunc   func(ctx context.Context) ([]model.Character, error)
	SaveFunc   func(ctx context.Context, c model.Character) error
	DeleteFunc func(ctx context.Context, id string) error
}

var _ repository.CharacterRepository = (*MockCharacterRepo)(nil)

func (m *MockCharacterRepo) List(ctx context.Context) ([]model.Character, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Character(nil), m.Characters...), nil
}

func (m *MockCharacterRepo) Save(ctx context.Context, c model.Character) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Characters {
		if m.Characters[i].ID == c.ID {
			m.Characters[i] = c
			return nil
		}
	}
	m.Characters = append(m.Characters, c)
	return nil
}

func (m *MockCharacterRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Characters {
		if m.Characters[i].ID == id {
			m.Characters = append(m.Characters[:i], m.Characters[i+1:]...)
			return nil
		}
	}
	return nil
}

// ---- Prompts ----

type MockPromptRepo struct {
	mu      sync.Mutex
	Prompts []model.PromptTemplate

	ListFunc   func(ctx context.Context) ([]model.PromptTemplate, error)
	SaveFunc   func(ctx context.Context, p model.PromptTemplate) error
	DeleteFunc func(ctx context.Context, id string) error
}

var _ repository.PromptRepository = (*MockPromptRepo)(nil)

func (m *MockPromptRepo) List(ctx context.Context) ([]model.PromptTemplate, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PromptTemplate(nil), m.Prompts...), nil
}

func (m *MockPromptRepo) Save(ctx context.Context, p model.PromptTemplate) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Prompts {
		if m.Prompts[i].ID == p.ID {
			m.Prompts[i] = p
			return nil
		}
	}
	m.Prompts = append(m.Prompts, p)
	return nil
}

func (m *MockPromptRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Prompts {
		if m.Prompts[i].ID == id {
			m.Prompts = append(m.Prompts[:i], m.Prompts[i+1:]...)
			return nil
		}
	}
	return nil
}

// ---- Language ----

type MockLanguageRepo struct {
	mu   sync.Mutex
	Lang string

	GetFunc func(ctx context.Context) (string, error)
	SetFunc func(ctx context.Context, lang string) error
}

var _ repository.LanguageRepository = (*MockLanguageRepo)(nil)

func (m *MockLanguageRepo) Get(ctx context.Context) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Lang == "" {
		return "zh", nil
	}
	return m.Lang, nil
}

func (m *MockLanguageRepo) Set(ctx context.Context, lang string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, lang)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lang = lang
	return nil
}

// =============================
// Adapters
// =============================

// MockProvider records invocations and routes each call through the
// corresponding Func field.
type MockProvider struct {
	mu sync.Mutex

	SubmitFunc      func(ctx context.Context, prompt string, cfg model.Settings) adapter.SubmitResult
	RemixFunc       func(ctx context.Context, providerTaskID, prompt string, cfg model.Settings) adapter.SubmitResult
	PollFunc        func(ctx context.Context, providerTaskID string, cfg model.Settings) adapter.PollResult
	ListHistoryFunc func(ctx context.Context, cfg model.Settings) ([]model.Task, error)
	BalanceFunc     func(ctx context.Context, cfg model.Settings) (adapter.Balance, error)

	Submitted []string // prompts, in call order
	Remixed   []string // source provider task ids
	Polled    []string // provider task ids
}

var _ adapter.VideoProvider = (*MockProvider)(nil)

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Submit(ctx context.Context, prompt string, cfg model.Settings) adapter.SubmitResult {
	m.mu.Lock()
	m.Submitted = append(m.Submitted, prompt)
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, prompt, cfg)
	}
	return adapter.SubmitResult{OK: true, ProviderTaskID: "prov-1"}
}

func (m *MockProvider) Remix(ctx context.Context, providerTaskID, prompt string, cfg model.Settings) adapter.SubmitResult {
	m.mu.Lock()
	m.Remixed = append(m.Remixed, providerTaskID)
	m.mu.Unlock()
	if m.RemixFunc != nil {
		return m.RemixFunc(ctx, providerTaskID, prompt, cfg)
	}
	return adapter.SubmitResult{OK: true, ProviderTaskID: "prov-remix-1"}
}

func (m *MockProvider) Poll(ctx context.Context, providerTaskID string, cfg model.Settings) adapter.PollResult {
	m.mu.Lock()
	m.Polled = append(m.Polled, providerTaskID)
	m.mu.Unlock()
	if m.PollFunc != nil {
		return m.PollFunc(ctx, providerTaskID, cfg)
	}
	return adapter.PollResult{Status: model.TaskStatusProcessing}
}

func (m *MockProvider) ListHistory(ctx context.Context, cfg model.Settings) ([]model.Task, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, cfg)
	}
	return nil, nil
}

func (m *MockProvider) Balance(ctx context.Context, cfg model.Settings) (adapter.Balance, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, cfg)
	}
	return adapter.Balance{}, nil
}

func (m *MockProvider) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submitted)
}

func (m *MockProvider) PollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Polled)
}

// ---- Notification sink ----

type MockSink struct {
	mu     sync.Mutex
	Events []adapter.Event
}

var _ adapter.NotificationSink = (*MockSink)(nil)

func (m *MockSink) Notify(ctx context.Context, ev adapter.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}

func (m *MockSink) ByType(t adapter.EventType) []adapter.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []adapter.Event
	for _, ev := range m.Events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// ---- Materializer ----

type MockSaver struct {
	mu    sync.Mutex
	Saved []string // urls
}

var _ adapter.VideoMaterializer = (*MockSaver)(nil)

func (m *MockSaver) Save(ctx context.Context, url, filename string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, url)
}

func (m *MockSaver) SavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saved)
}

// =============================
// Helpers
// =============================

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// newTestPool starts a worker pool for the duration of the test. Polls
// dispatched by a tick run on it asynchronously.
func newTestPool(t *testing.T) *worker.Pool {
	t.Helper()
	pool := worker.NewPool(4, newTestLogger())
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	return pool
}

// waitFor polls cond until it holds or the deadline passes. Used for
// assertions about work that a tick dispatched to the pool.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
