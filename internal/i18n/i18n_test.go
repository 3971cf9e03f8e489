package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ExamNotFound")
	if got != "Exam not found" {
		t.Errorf("T(ExamNotFound) = %q, want 'Exam not found'", got)
	}

	got = T(ctx, "AnswerRequired")
	if got != "Please select an option to Save & Mark for Review" {
		t.Errorf("T(AnswerRequired) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "ExamNotFound")
	if got != "Экзамен не найден" {
		t.Errorf("T(ExamNotFound) = %q, want 'Экзамен не найден'", got)
	}

	got = T(ctx, "UnknownAction")
	if got != "Неизвестное действие" {
		t.Errorf("T(UnknownAction) = %q, want 'Неизвестное действие'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestFallbackWithoutContextLocalizer(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// A bare context falls back to the English localizer.
	got := T(context.Background(), "ExamNotFound")
	if got != "Exam not found" {
		t.Errorf("T without localizer = %q, want 'Exam not found'", got)
	}
}
