package store

import (
	"database/sql"
	"fmt"

	"github.com/smartexam/smartexam/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		max_questions INTEGER
	);

	CREATE TABLE IF NOT EXISTS instructions (
		exam_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		exam_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		qtype TEXT NOT NULL DEFAULT 'MCQ',
		correct_answer TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS options (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		is_correct INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		submitted_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS result_answers (
		result_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		selected_option_id TEXT NOT NULL DEFAULT '',
		numeric_input TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (result_id) REFERENCES results(id)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertExam stores an exam, replacing an existing record with the same id in
// place. The exam row and all child rows are rewritten in one transaction.
func (s *Store) UpsertExam(e model.Exam) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var maxQ any
	if e.MaxQuestionsToAttempt != nil {
		maxQ = *e.MaxQuestionsToAttempt
	}
	_, err = tx.Exec(
		`INSERT INTO exams (id, title, created_at, max_questions) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, max_questions = excluded.max_questions`,
		e.ID, e.Title, e.CreatedAt, maxQ,
	)
	if err != nil {
		return err
	}

	if err := deleteExamChildren(tx, e.ID); err != nil {
		return err
	}

	for i, text := range e.Instructions {
		if _, err := tx.Exec(
			`INSERT INTO instructions (exam_id, position, text) VALUES (?, ?, ?)`,
			e.ID, i, text,
		); err != nil {
			return err
		}
	}

	for i, q := range e.Questions {
		if _, err := tx.Exec(
			`INSERT INTO questions (id, exam_id, position, text, image_url, qtype, correct_answer)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.ID, e.ID, i, q.Text, q.ImageURL, q.Type, q.CorrectAnswer,
		); err != nil {
			return err
		}
		for j, o := range q.Options {
			if _, err := tx.Exec(
				`INSERT INTO options (id, question_id, position, text, image_url, is_correct)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				o.ID, q.ID, j, o.Text, o.ImageURL, o.IsCorrect,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetExam returns an exam with its full question content.
// A missing id yields sql.ErrNoRows.
func (s *Store) GetExam(id string) (model.Exam, error) {
	var e model.Exam
	var maxQ sql.NullInt64
	err := s.db.QueryRow(
		`SELECT id, title, created_at, max_questions FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.CreatedAt, &maxQ)
	if err != nil {
		return e, err
	}
	if maxQ.Valid {
		v := int(maxQ.Int64)
		e.MaxQuestionsToAttempt = &v
	}
	if e.Instructions, err = s.examInstructions(id); err != nil {
		return e, err
	}
	if e.Questions, err = s.examQuestions(id); err != nil {
		return e, err
	}
	return e, nil
}

func (s *Store) examInstructions(examID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT text FROM instructions WHERE exam_id = ? ORDER BY position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	instructions := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		instructions = append(instructions, text)
	}
	return instructions, rows.Err()
}

func (s *Store) examQuestions(examID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, text, image_url, qtype, correct_answer
		 FROM questions WHERE exam_id = ? ORDER BY position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.ImageURL, &q.Type, &q.CorrectAnswer); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range questions {
		opts, err := s.questionOptions(questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = opts
	}
	return questions, nil
}

func (s *Store) questionOptions(questionID string) ([]model.Option, error) {
	rows, err := s.db.Query(
		`SELECT id, text, image_url, is_correct
		 FROM options WHERE question_id = ? ORDER BY position`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	options := []model.Option{}
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.Text, &o.ImageURL, &o.IsCorrect); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// ListExams returns all exams with full content, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(`SELECT id FROM exams ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exams := []model.Exam{}
	for _, id := range ids {
		e, err := s.GetExam(id)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, nil
}

// DeleteExam removes an exam and its child rows. Deleting a missing id is a
// no-op.
func (s *Store) DeleteExam(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteExamChildren(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM exams WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteExamChildren(tx *sql.Tx, examID string) error {
	if _, err := tx.Exec(
		`DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE exam_id = ?)`,
		examID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions WHERE exam_id = ?`, examID); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM instructions WHERE exam_id = ?`, examID)
	return err
}

// ExamCount returns the number of stored exams.
func (s *Store) ExamCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}
