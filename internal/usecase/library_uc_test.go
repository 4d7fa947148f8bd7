//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/usecase"
)

func TestLibraryCharacters(t *testing.T) {
	ctx := context.Background()

	t.Run("should mint an id and normalize the handle on save", func(t *testing.T) {
		chars := &MockCharacterRepo{}
		uc := usecase.NewLibraryUseCase(chars, &MockPromptRepo{})

		saved, err := uc.SaveCharacter(ctx, model.Character{Name: "  Ada ", Handle: "ada"})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if saved.ID == "" {
			t.Error("expected a generated id")
		}
		if saved.Name != "Ada" || saved.Handle != "@ada" {
			t.Errorf("unexpected normalization: %+v", saved)
		}
	})

	t.Run("should reject a character without name or handle", func(t *testing.T) {
		uc := usecase.NewLibraryUseCase(&MockCharacterRepo{}, &MockPromptRepo{})

		if _, err := uc.SaveCharacter(ctx, model.Character{Name: "   "}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should keep an existing id on update", func(t *testing.T) {
		chars := &MockCharacterRepo{Characters: []model.Character{{ID: "c1", Name: "Ada", Handle: "@ada"}}}
		uc := usecase.NewLibraryUseCase(chars, &MockPromptRepo{})

		saved, err := uc.SaveCharacter(ctx, model.Character{ID: "c1", Name: "Ada Prime", Handle: "@ada"})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if saved.ID != "c1" || len(chars.Characters) != 1 {
			t.Error("expected an in-place update")
		}
	})
}

func TestLibraryPrompts(t *testing.T) {
	ctx := context.Background()

	t.Run("should stamp new templates with id and creation time", func(t *testing.T) {
		prompts := &MockPromptRepo{}
		uc := usecase.NewLibraryUseCase(&MockCharacterRepo{}, prompts)

		saved, err := uc.SavePrompt(ctx, model.PromptTemplate{Title: "Sunset", Content: "a sunset over the sea"})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if saved.ID == "" || saved.CreatedAt == 0 {
			t.Errorf("expected id and created_at to be set: %+v", saved)
		}
	})

	t.Run("should reject an empty template", func(t *testing.T) {
		uc := usecase.NewLibraryUseCase(&MockCharacterRepo{}, &MockPromptRepo{})

		if _, err := uc.SavePrompt(ctx, model.PromptTemplate{Title: "x"}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should bump the usage counter when a template is used", func(t *testing.T) {
		prompts := &MockPromptRepo{Prompts: []model.PromptTemplate{{ID: "p1", Title: "Sunset", Content: "...", UsageCount: 2}}}
		uc := usecase.NewLibraryUseCase(&MockCharacterRepo{}, prompts)

		used, err := uc.UseTemplate(ctx, "p1")

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if used.UsageCount != 3 {
			t.Errorf("expected usage count 3, got %d", used.UsageCount)
		}
		if prompts.Prompts[0].UsageCount != 3 {
			t.Error("expected the bump to be persisted")
		}
	})

	t.Run("should report an unknown template", func(t *testing.T) {
		uc := usecase.NewLibraryUseCase(&MockCharacterRepo{}, &MockPromptRepo{})

		if _, err := uc.UseTemplate(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
