package session

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/smartexam/smartexam/internal/model"
)

// Score computes the result for a completed session. It is a pure function
// of its inputs: neither the session nor the answers are mutated, and scoring
// the same inputs twice yields the same result (modulo the timestamp).
//
// MCQ questions score when the selected option exists and carries the
// correctness flag. INTEGER questions score when both the stored answer and
// the student's input parse as floats and compare equal, so "10" and "10.0"
// both count. Unanswered questions and data-integrity anomalies (malformed
// numbers, duplicate answer rows) contribute zero, never an error; when one
// question has several answer entries the first match is authoritative.
func Score(session model.Exam, answers []model.StudentAnswer) model.ExamResult {
	score := 0
	for _, q := range session.Questions {
		if answered(q, answers) {
			score++
		}
	}
	return model.ExamResult{
		ExamID:         session.ID,
		Score:          score,
		TotalQuestions: len(session.Questions),
		Answers:        answers,
		Timestamp:      time.Now(),
	}
}

func answered(q model.Question, answers []model.StudentAnswer) bool {
	for _, a := range answers {
		if a.QuestionID != q.ID {
			continue
		}
		switch q.Type {
		case model.TypeInteger:
			return numericMatch(q, a)
		default:
			opt := q.CorrectOption()
			return opt != nil && a.SelectedOptionID == opt.ID
		}
	}
	return false
}

func numericMatch(q model.Question, a model.StudentAnswer) bool {
	if a.NumericInput == "" || q.CorrectAnswer == "" {
		return false
	}
	got, err := strconv.ParseFloat(a.NumericInput, 64)
	if err != nil {
		slog.Warn("malformed numeric input, scoring as no credit",
			"question_id", q.ID, "input", a.NumericInput)
		return false
	}
	want, err := strconv.ParseFloat(q.CorrectAnswer, 64)
	if err != nil {
		slog.Warn("malformed stored answer, scoring as no credit",
			"question_id", q.ID, "stored", q.CorrectAnswer)
		return false
	}
	// Exact float equality, no tolerance band.
	return got == want
}
