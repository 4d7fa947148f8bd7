package redis

import (
	"context"
	"encoding/json"

	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Fixed keys for the remaining persisted collections. Each is an
// independent JSON document rewritten whole on every change.
const (
	settingsKey   = "sora:settings"
	charactersKey = "sora:characters"
	promptsKey    = "sora:prompts"
	languageKey   = "sora:language"
)

var (
	_ repository.SettingsRepository  = (*SettingsRepo)(nil)
	_ repository.CharacterRepository = (*CharacterRepo)(nil)
	_ repository.PromptRepository    = (*PromptRepo)(nil)
	_ repository.LanguageRepository  = (*LanguageRepo)(nil)
)

// SettingsRepo keeps the stored settings as a raw JSON object so fields this
// build does not know about survive a round trip. Get overlays the stored
// fields on built-in defaults; Patch merges updated fields into the stored
// object before persisting.
type SettingsRepo struct {
	client RedisClient
	log    *zerolog.Logger
}

func NewSettingsRepo(client RedisClient, logger *zerolog.Logger) *SettingsRepo {
	return &SettingsRepo{client: client, log: logger}
}

func (r *SettingsRepo) raw(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := r.client.Get(ctx, settingsKey)
	if err != nil {
		if err == Nil {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		r.log.Warn().Err(err).Msg("stored settings malformed; falling back to defaults")
		return map[string]json.RawMessage{}, nil
	}
	return fields, nil
}

func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	settings := model.DefaultSettings()
	fields, err := r.raw(ctx)
	if err != nil {
		return settings, err
	}
	if len(fields) == 0 {
		return settings, nil
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return settings, err
	}
	// Unmarshal over the prefilled struct: absent fields keep their defaults.
	if err := json.Unmarshal(merged, &settings); err != nil {
		r.log.Warn().Err(err).Msg("stored settings not decodable; falling back to defaults")
		return model.DefaultSettings(), nil
	}
	return settings, nil
}

func (r *SettingsRepo) Patch(ctx context.Context, patch map[string]any) (model.Settings, error) {
	fields, err := r.raw(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	for k, v := range patch {
		b, err := json.Marshal(v)
		if err != nil {
			return model.Settings{}, err
		}
		fields[k] = b
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return model.Settings{}, err
	}
	if err := r.client.Set(ctx, settingsKey, data, 0); err != nil {
		return model.Settings{}, err
	}
	return r.Get(ctx)
}

type CharacterRepo struct {
	client RedisClient
	log    *zerolog.Logger
}

func NewCharacterRepo(client RedisClient, logger *zerolog.Logger) *CharacterRepo {
	return &CharacterRepo{client: client, log: logger}
}

func (r *CharacterRepo) List(ctx context.Context) ([]model.Character, error) {
	var out []model.Character
	if err := loadJSON(ctx, r.client, r.log, charactersKey, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Character{}
	}
	return out, nil
}

func (r *CharacterRepo) Save(ctx context.Context, c model.Character) error {
	current, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range current {
		if current[i].ID == c.ID {
			current[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		current = append(current, c)
	}
	return storeJSON(ctx, r.client, charactersKey, current)
}

func (r *CharacterRepo) Delete(ctx context.Context, id string) error {
	current, err := r.List(ctx)
	if err != nil {
		return err
	}
	next := current[:0]
	for _, c := range current {
		if c.ID != id {
			next = append(next, c)
		}
	}
	return storeJSON(ctx, r.client, charactersKey, next)
}

type PromptRepo struct {
	client RedisClient
	log    *zerolog.Logger
}

func NewPromptRepo(client RedisClient, logger *zerolog.Logger) *PromptRepo {
	return &PromptRepo{client: client, log: logger}
}

func (r *PromptRepo) List(ctx context.Context) ([]model.PromptTemplate, error) {
	var out []model.PromptTemplate
	if err := loadJSON(ctx, r.client, r.log, promptsKey, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.PromptTemplate{}
	}
	return out, nil
}

func (r *PromptRepo) Save(ctx context.Context, p model.PromptTemplate) error {
	current, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range current {
		if current[i].ID == p.ID {
			current[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		current = append(current, p)
	}
	return storeJSON(ctx, r.client, promptsKey, current)
}

func (r *PromptRepo) Delete(ctx context.Context, id string) error {
	current, err := r.List(ctx)
	if err != nil {
		return err
	}
	next := current[:0]
	for _, p := range current {
		if p.ID != id {
			next = append(next, p)
		}
	}
	return storeJSON(ctx, r.client, promptsKey, next)
}

type LanguageRepo struct {
	client RedisClient
}

func NewLanguageRepo(client RedisClient) *LanguageRepo {
	return &LanguageRepo{client: client}
}

func (r *LanguageRepo) Get(ctx context.Context) (string, error) {
	lang, err := r.client.Get(ctx, languageKey)
	if err != nil {
		if err == Nil {
			return "zh", nil
		}
		return "", err
	}
	return lang, nil
}

func (r *LanguageRepo) Set(ctx context.Context, lang string) error {
	return r.client.Set(ctx, languageKey, lang, 0)
}

func loadJSON(ctx context.Context, client RedisClient, log *zerolog.Logger, key string, out any) error {
	data, err := client.Get(ctx, key)
	if err != nil {
		if err == Nil {
			return nil
		}
		return err
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("stored document malformed; treating as absent")
	}
	return nil
}

func storeJSON(ctx context.Context, client RedisClient, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, 0)
}
