package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/smartexam/smartexam/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleExam() model.Exam {
	return model.Exam{
		ID:           "exam-1",
		Title:        "Physics Mock",
		Instructions: []string{"Read carefully.", "No calculators."},
		CreatedAt:    time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		Questions: []model.Question{
			{
				ID:   "q1",
				Text: "Speed of light?",
				Type: model.TypeMCQ,
				Options: []model.Option{
					{ID: "q1a", Text: "3e8 m/s", IsCorrect: true},
					{ID: "q1b", Text: "3e6 m/s"},
				},
			},
			{
				ID:            "q2",
				Text:          "How many base SI units?",
				Type:          model.TypeInteger,
				CorrectAnswer: "7",
			},
		},
	}
}

func TestExamRoundTrip(t *testing.T) {
	s := newTestStore(t)
	exam := sampleExam()

	if err := s.UpsertExam(exam); err != nil {
		t.Fatalf("UpsertExam: %v", err)
	}

	got, err := s.GetExam("exam-1")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Title != exam.Title {
		t.Errorf("title: expected %q, got %q", exam.Title, got.Title)
	}
	if len(got.Instructions) != 2 || got.Instructions[0] != "Read carefully." {
		t.Errorf("instructions not preserved in order: %v", got.Instructions)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got.Questions))
	}
	q1 := got.Questions[0]
	if q1.Type != model.TypeMCQ {
		t.Errorf("q1 type: expected MCQ, got %q", q1.Type)
	}
	if len(q1.Options) != 2 || !q1.Options[0].IsCorrect || q1.Options[1].IsCorrect {
		t.Errorf("q1 options not preserved: %+v", q1.Options)
	}
	q2 := got.Questions[1]
	if q2.Type != model.TypeInteger || q2.CorrectAnswer != "7" {
		t.Errorf("q2 not preserved: %+v", q2)
	}
	if got.MaxQuestionsToAttempt != nil {
		t.Errorf("unset cap should round-trip as nil, got %v", *got.MaxQuestionsToAttempt)
	}
}

func TestExamNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetExam("nope"); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestAttemptCapRoundTrip(t *testing.T) {
	s := newTestStore(t)

	for _, cap := range []int{0, 3} {
		cap := cap
		exam := sampleExam()
		exam.ID = "exam-cap"
		exam.MaxQuestionsToAttempt = &cap
		if err := s.UpsertExam(exam); err != nil {
			t.Fatalf("UpsertExam: %v", err)
		}
		got, err := s.GetExam("exam-cap")
		if err != nil {
			t.Fatalf("GetExam: %v", err)
		}
		if got.MaxQuestionsToAttempt == nil || *got.MaxQuestionsToAttempt != cap {
			t.Errorf("cap %d did not round-trip: %v", cap, got.MaxQuestionsToAttempt)
		}
	}
}

func TestUpsertReplacesInPlace(t *testing.T) {
	s := newTestStore(t)
	exam := sampleExam()
	if err := s.UpsertExam(exam); err != nil {
		t.Fatalf("UpsertExam: %v", err)
	}

	exam.Title = "Physics Mock v2"
	exam.Instructions = []string{"New rules."}
	exam.Questions = exam.Questions[:1]
	if err := s.UpsertExam(exam); err != nil {
		t.Fatalf("UpsertExam again: %v", err)
	}

	got, err := s.GetExam("exam-1")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Title != "Physics Mock v2" {
		t.Errorf("title not updated: %q", got.Title)
	}
	if len(got.Instructions) != 1 || len(got.Questions) != 1 {
		t.Errorf("child rows not replaced: %d instructions, %d questions",
			len(got.Instructions), len(got.Questions))
	}

	count, err := s.ExamCount()
	if err != nil {
		t.Fatalf("ExamCount: %v", err)
	}
	if count != 1 {
		t.Errorf("upsert must not create a second exam, count %d", count)
	}
}

func TestListExamsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	old := sampleExam()
	old.ID = "exam-old"
	old.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := sampleExam()
	recent.ID = "exam-new"
	recent.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := s.UpsertExam(old); err != nil {
		t.Fatalf("UpsertExam: %v", err)
	}
	if err := s.UpsertExam(recent); err != nil {
		t.Fatalf("UpsertExam: %v", err)
	}

	exams, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(exams))
	}
	if exams[0].ID != "exam-new" || exams[1].ID != "exam-old" {
		t.Errorf("expected newest first, got %s, %s", exams[0].ID, exams[1].ID)
	}
}

func TestDeleteExam(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertExam(sampleExam()); err != nil {
		t.Fatalf("UpsertExam: %v", err)
	}
	if err := s.DeleteExam("exam-1"); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	if _, err := s.GetExam("exam-1"); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows after delete, got %v", err)
	}

	// Deleting a missing exam is a no-op.
	if err := s.DeleteExam("nope"); err != nil {
		t.Errorf("DeleteExam missing id: %v", err)
	}
}

func TestResultsAppendAndList(t *testing.T) {
	s := newTestStore(t)

	first := model.ExamResult{
		ExamID:         "exam-1",
		Score:          1,
		TotalQuestions: 2,
		Answers: []model.StudentAnswer{
			{QuestionID: "q1", SelectedOptionID: "q1a"},
			{QuestionID: "q2", NumericInput: "7"},
		},
		Timestamp: time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
	}
	second := model.ExamResult{
		ExamID:         "exam-1",
		Score:          2,
		TotalQuestions: 2,
		Timestamp:      time.Date(2025, 5, 3, 9, 0, 0, 0, time.UTC),
	}

	if err := s.AppendResult(first); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	if err := s.AppendResult(second); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	results, err := s.ListResults()
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score != 2 {
		t.Errorf("expected newest result first, got score %d", results[0].Score)
	}
	got := results[1]
	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}
	if got.Answers[0].QuestionID != "q1" || got.Answers[0].SelectedOptionID != "q1a" {
		t.Errorf("answer 0 not preserved: %+v", got.Answers[0])
	}
	if got.Answers[1].NumericInput != "7" {
		t.Errorf("answer 1 not preserved: %+v", got.Answers[1])
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("missing key should return empty string, got %q", v)
	}

	if err := s.SetAdminKeyHash("hash-1"); err != nil {
		t.Fatalf("SetAdminKeyHash: %v", err)
	}
	if err := s.SetAdminKeyHash("hash-2"); err != nil {
		t.Fatalf("SetAdminKeyHash overwrite: %v", err)
	}
	h, err := s.AdminKeyHash()
	if err != nil {
		t.Fatalf("AdminKeyHash: %v", err)
	}
	if h != "hash-2" {
		t.Errorf("expected hash-2, got %q", h)
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateAuthSession()
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected non-empty token")
	}
	if !sess.ExpiresAt.After(sess.CreatedAt) {
		t.Errorf("expiry must be after creation: %+v", sess)
	}

	got, err := s.GetAuthSession(sess.ID)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if got == nil || got.ID != sess.ID {
		t.Errorf("expected session back, got %+v", got)
	}

	if got, _ := s.GetAuthSession("unknown"); got != nil {
		t.Errorf("unknown token should yield nil, got %+v", got)
	}

	if err := s.DeleteAuthSession(sess.ID); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	if got, _ := s.GetAuthSession(sess.ID); got != nil {
		t.Error("deleted session still retrievable")
	}
}

func TestExpiredAuthSessionRejected(t *testing.T) {
	s := newTestStore(t)

	_, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, created_at, expires_at) VALUES (?, ?, ?)`,
		"stale", time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour),
	)
	if err != nil {
		t.Fatalf("insert stale session: %v", err)
	}

	got, err := s.GetAuthSession("stale")
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if got != nil {
		t.Errorf("expired session should yield nil, got %+v", got)
	}

	if err := s.CleanupExpiredSessions(); err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
}
