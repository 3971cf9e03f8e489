// Package session implements exam-session construction, the exam-taking
// state machine, and the scoring engine.
package session

import (
	"math/rand"

	"github.com/smartexam/smartexam/internal/model"
)

// Build materializes a session-shaped exam from a stored one: the question
// list is cloned, shuffled with Fisher-Yates, and truncated to the exam's
// attempt cap when one is set. The parent exam is never mutated.
func Build(exam model.Exam) model.Exam {
	questions := make([]model.Question, len(exam.Questions))
	copy(questions, exam.Questions)

	for i := len(questions) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}

	if cap := exam.MaxQuestionsToAttempt; cap != nil && *cap > 0 && *cap < len(questions) {
		questions = questions[:*cap]
	}

	session := exam
	session.Questions = questions
	return session
}
