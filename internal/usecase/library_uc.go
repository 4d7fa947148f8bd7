package usecase

import (
	"context"
	"strings"
	"time"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/repository"

	"github.com/google/uuid"
)

// LibraryUseCase manages the character and prompt libraries. The queue
// engine only ever reads characters; all lifecycle goes through here.
type LibraryUseCase struct {
	characters repository.CharacterRepository
	prompts    repository.PromptRepository
}

func NewLibraryUseCase(characters repository.CharacterRepository, prompts repository.PromptRepository) *LibraryUseCase {
	return &LibraryUseCase{characters: characters, prompts: prompts}
}

func (uc *LibraryUseCase) Characters(ctx context.Context) ([]model.Character, error) {
	return uc.characters.List(ctx)
}

func (uc *LibraryUseCase) SaveCharacter(ctx context.Context, c model.Character) (model.Character, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Handle = strings.TrimSpace(c.Handle)
	if c.Name == "" || c.Handle == "" {
		return model.Character{}, domain.ErrInvalidArgument
	}
	if !strings.HasPrefix(c.Handle, "@") {
		c.Handle = "@" + c.Handle
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := uc.characters.Save(ctx, c); err != nil {
		return model.Character{}, err
	}
	return c, nil
}

func (uc *LibraryUseCase) DeleteCharacter(ctx context.Context, id string) error {
	return uc.characters.Delete(ctx, id)
}

func (uc *LibraryUseCase) Prompts(ctx context.Context) ([]model.PromptTemplate, error) {
	return uc.prompts.List(ctx)
}

func (uc *LibraryUseCase) SavePrompt(ctx context.Context, p model.PromptTemplate) (model.PromptTemplate, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" || strings.TrimSpace(p.Content) == "" {
		return model.PromptTemplate{}, domain.ErrInvalidArgument
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = time.Now().UnixMilli()
	}
	if err := uc.prompts.Save(ctx, p); err != nil {
		return model.PromptTemplate{}, err
	}
	return p, nil
}

func (uc *LibraryUseCase) DeletePrompt(ctx context.Context, id string) error {
	return uc.prompts.Delete(ctx, id)
}

// UseTemplate returns the template content for enqueueing and bumps its
// usage counter.
func (uc *LibraryUseCase) UseTemplate(ctx context.Context, id string) (model.PromptTemplate, error) {
	all, err := uc.prompts.List(ctx)
	if err != nil {
		return model.PromptTemplate{}, err
	}
	for _, p := range all {
		if p.ID == id {
			p.UsageCount++
			if err := uc.prompts.Save(ctx, p); err != nil {
				return model.PromptTemplate{}, err
			}
			return p, nil
		}
	}
	return model.PromptTemplate{}, domain.ErrNotFound
}
