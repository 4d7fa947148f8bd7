//go:build !integration

package i18n

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("greeting: \"Hello %s\"\nplain: \"Just text\"\n")},
	}

	t.Run("should format arguments into the template", func(t *testing.T) {
		tr, err := NewTranslator(fsys, "en")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := tr.T("greeting", "world"); got != "Hello world" {
			t.Errorf("unexpected translation %q", got)
		}
		if got := tr.T("plain"); got != "Just text" {
			t.Errorf("unexpected translation %q", got)
		}
	})

	t.Run("should fall back to the key for unknown entries", func(t *testing.T) {
		tr, _ := NewTranslator(fsys, "en")
		if got := tr.T("missing_key"); got != "missing_key" {
			t.Errorf("unexpected fallback %q", got)
		}
	})

	t.Run("should fail for a missing locale", func(t *testing.T) {
		if _, err := NewTranslator(fsys, "fr"); err == nil {
			t.Fatal("expected an error for a missing locale file")
		}
	})
}

func TestEmbeddedLocales(t *testing.T) {
	for _, lang := range []string{"en", "zh"} {
		tr, err := NewTranslator(LocalesFS, lang)
		if err != nil {
			t.Fatalf("locale %s: %v", lang, err)
		}
		for _, key := range []string{
			"task_submitted", "task_completed", "task_failed",
			"history_synced", "history_empty", "download_fallback",
			"queue_started", "queue_stopped",
		} {
			if got := tr.T(key, "x"); got == key || strings.TrimSpace(got) == "" {
				t.Errorf("locale %s missing key %s", lang, key)
			}
		}
	}
}
