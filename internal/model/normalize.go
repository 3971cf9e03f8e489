package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FallbackTitle is used when an ingested payload carries no usable title.
const FallbackTitle = "Untitled Exam"

// Normalize repairs an exam assembled from untrusted input (an ingestion
// payload or an admin upsert) so the rest of the system can rely on its
// shape: ids are filled in, empty slices replace nil ones, the question type
// discriminator is defaulted, and each MCQ keeps at most one correct option.
func Normalize(e *Exam) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if strings.TrimSpace(e.Title) == "" {
		e.Title = FallbackTitle
	}
	if e.Instructions == nil {
		e.Instructions = []string{}
	}
	if e.Questions == nil {
		e.Questions = []Question{}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.MaxQuestionsToAttempt != nil && *e.MaxQuestionsToAttempt < 0 {
		e.MaxQuestionsToAttempt = nil
	}

	for i := range e.Questions {
		normalizeQuestion(&e.Questions[i])
	}
}

func normalizeQuestion(q *Question) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Type != TypeInteger {
		q.Type = TypeMCQ
	}
	if q.Options == nil {
		q.Options = []Option{}
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = uuid.NewString()
		}
	}
	// Keep the first correct option, clear the rest.
	seen := false
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			if seen {
				q.Options[i].IsCorrect = false
			}
			seen = true
		}
	}
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
}
