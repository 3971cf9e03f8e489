package model

// OptionView is the student-facing shape of an option: no correctness flag.
type OptionView struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// QuestionView is the student-facing shape of a question. The correct answer
// and option correctness never leave the server while a session is live.
type QuestionView struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	ImageURL string       `json:"image_url,omitempty"`
	Type     QuestionType `json:"type"`
	Options  []OptionView `json:"options"`
}

// ViewOf strips answer information from a question for delivery to a student.
func ViewOf(q Question) QuestionView {
	v := QuestionView{
		ID:       q.ID,
		Text:     q.Text,
		ImageURL: q.ImageURL,
		Type:     q.Type,
		Options:  make([]OptionView, 0, len(q.Options)),
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text, ImageURL: o.ImageURL})
	}
	return v
}

// ViewsOf maps ViewOf over a question list.
func ViewsOf(questions []Question) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, ViewOf(q))
	}
	return views
}

// ExamSummary is the dashboard shape of an exam: counts instead of content.
type ExamSummary struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	QuestionCount         int    `json:"question_count"`
	CreatedAt             int64  `json:"created_at"`
	MaxQuestionsToAttempt *int   `json:"max_questions_to_attempt,omitempty"`
}

// SummaryOf builds the dashboard shape of an exam.
func SummaryOf(e Exam) ExamSummary {
	return ExamSummary{
		ID:                    e.ID,
		Title:                 e.Title,
		QuestionCount:         len(e.Questions),
		CreatedAt:             e.CreatedAt.UnixMilli(),
		MaxQuestionsToAttempt: e.MaxQuestionsToAttempt,
	}
}
