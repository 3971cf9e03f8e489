package session

import (
	"testing"

	"github.com/smartexam/smartexam/internal/model"
)

func scoringExam() model.Exam {
	return model.Exam{
		ID: "exam-score",
		Questions: []model.Question{
			{
				ID:   "mcq1",
				Type: model.TypeMCQ,
				Options: []model.Option{
					{ID: "a", Text: "right", IsCorrect: true},
					{ID: "b", Text: "wrong"},
				},
			},
			{
				ID:            "int1",
				Type:          model.TypeInteger,
				CorrectAnswer: "10",
			},
		},
	}
}

func TestScoreMCQ(t *testing.T) {
	exam := scoringExam()

	tests := []struct {
		name     string
		selected string
		want     int
	}{
		{"correct option", "a", 1},
		{"wrong option", "b", 0},
		{"foreign option id", "zzz", 0},
		{"no selection", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := []model.StudentAnswer{{QuestionID: "mcq1", SelectedOptionID: tt.selected}}
			res := Score(exam, answers)
			if res.Score != tt.want {
				t.Errorf("expected score %d, got %d", tt.want, res.Score)
			}
		})
	}
}

func TestScoreMCQWithoutCorrectOption(t *testing.T) {
	exam := model.Exam{
		ID: "exam-nocorrect",
		Questions: []model.Question{
			{
				ID:      "q1",
				Type:    model.TypeMCQ,
				Options: []model.Option{{ID: "a"}, {ID: "b"}},
			},
		},
	}
	res := Score(exam, []model.StudentAnswer{{QuestionID: "q1", SelectedOptionID: "a"}})
	if res.Score != 0 {
		t.Errorf("question without a correct option must score 0, got %d", res.Score)
	}
}

func TestScoreNumeric(t *testing.T) {
	exam := scoringExam()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"exact match", "10", 1},
		{"float form of same value", "10.0", 1},
		{"close but not equal", "10.1", 0},
		{"wrong value", "9", 0},
		{"empty input", "", 0},
		{"malformed input", "ten", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := []model.StudentAnswer{{QuestionID: "int1", NumericInput: tt.input}}
			res := Score(exam, answers)
			if res.Score != tt.want {
				t.Errorf("input %q: expected score %d, got %d", tt.input, tt.want, res.Score)
			}
		})
	}
}

func TestScoreMalformedStoredAnswer(t *testing.T) {
	exam := model.Exam{
		ID: "exam-badkey",
		Questions: []model.Question{
			{ID: "q1", Type: model.TypeInteger, CorrectAnswer: "n/a"},
		},
	}
	res := Score(exam, []model.StudentAnswer{{QuestionID: "q1", NumericInput: "5"}})
	if res.Score != 0 {
		t.Errorf("malformed stored answer must score 0, got %d", res.Score)
	}
}

func TestScoreTotalsAndUnanswered(t *testing.T) {
	exam := scoringExam()
	res := Score(exam, nil)
	if res.Score != 0 {
		t.Errorf("expected 0 with no answers, got %d", res.Score)
	}
	if res.TotalQuestions != 2 {
		t.Errorf("expected total 2, got %d", res.TotalQuestions)
	}
	if res.ExamID != "exam-score" {
		t.Errorf("expected exam id carried over, got %q", res.ExamID)
	}
}

func TestScoreDuplicateAnswersFirstWins(t *testing.T) {
	exam := scoringExam()
	answers := []model.StudentAnswer{
		{QuestionID: "mcq1", SelectedOptionID: "b"},
		{QuestionID: "mcq1", SelectedOptionID: "a"},
	}
	res := Score(exam, answers)
	if res.Score != 0 {
		t.Errorf("first entry is authoritative, expected 0, got %d", res.Score)
	}
}

func TestScoreIsRepeatable(t *testing.T) {
	exam := scoringExam()
	answers := []model.StudentAnswer{
		{QuestionID: "mcq1", SelectedOptionID: "a"},
		{QuestionID: "int1", NumericInput: "10"},
	}
	first := Score(exam, answers)
	second := Score(exam, answers)
	if first.Score != second.Score || first.Score != 2 {
		t.Errorf("re-scoring changed the outcome: %d then %d", first.Score, second.Score)
	}
}
