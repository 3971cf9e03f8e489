package model

import "time"

// QuestionType discriminates how a question is answered and scored.
type QuestionType string

const (
	// TypeMCQ is a multiple-choice question scored by the selected option's correctness flag.
	TypeMCQ QuestionType = "MCQ"
	// TypeInteger is a numeric free-response question scored by numeric equality.
	TypeInteger QuestionType = "INTEGER"
)

// QuestionStatus is the per-question progress indicator shown in the palette.
type QuestionStatus string

const (
	StatusNotVisited     QuestionStatus = "not_visited"
	StatusNotAnswered    QuestionStatus = "not_answered"
	StatusAnswered       QuestionStatus = "answered"
	StatusMarked         QuestionStatus = "marked_for_review"
	StatusAnsweredMarked QuestionStatus = "answered_marked_for_review"
)

// Option is one answer choice of an MCQ question. IsCorrect is visible only
// to authoring and scoring code; student-facing views must strip it.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ImageURL  string `json:"image_url,omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a single exam question. Options are meaningful only for MCQ;
// CorrectAnswer holds the string-encoded numeric answer for INTEGER questions.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	ImageURL      string       `json:"image_url,omitempty"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
}

// ToggleCorrect flips the correctness of the option with the given id and
// clears every other option, so at most one option is ever correct.
func (q *Question) ToggleCorrect(optionID string) {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			q.Options[i].IsCorrect = !q.Options[i].IsCorrect
		} else {
			q.Options[i].IsCorrect = false
		}
	}
}

// CorrectOption returns the correct option of an MCQ question, or nil.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// Exam is a stored exam record. MaxQuestionsToAttempt is nil when no cap is
// set; nil, zero, and positive values stay distinguishable in storage and on
// the wire.
type Exam struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Instructions          []string   `json:"instructions"`
	Questions             []Question `json:"questions"`
	CreatedAt             time.Time  `json:"created_at"`
	MaxQuestionsToAttempt *int       `json:"max_questions_to_attempt,omitempty"`
}

// StudentAnswer records the student's response to one question. Exactly one
// of SelectedOptionID (MCQ) or NumericInput (INTEGER) is set.
type StudentAnswer struct {
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	NumericInput     string `json:"numeric_input,omitempty"`
}

// ExamResult is the immutable outcome of one submitted session.
// TotalQuestions counts the session's questions, not the parent exam's.
type ExamResult struct {
	ExamID         string          `json:"exam_id"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	Answers        []StudentAnswer `json:"answers"`
	Timestamp      time.Time       `json:"timestamp"`
}

// AuthSession represents an admin authentication session.
type AuthSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	Duration      time.Duration // countdown per session
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
}
