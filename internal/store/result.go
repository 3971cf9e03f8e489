package store

import (
	"github.com/smartexam/smartexam/internal/model"
)

// AppendResult writes a result and its answer rows in one transaction.
// The result store is append-only; results are never updated or deleted.
func (s *Store) AppendResult(r model.ExamResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO results (exam_id, score, total_questions, submitted_at) VALUES (?, ?, ?, ?)`,
		r.ExamID, r.Score, r.TotalQuestions, r.Timestamp,
	)
	if err != nil {
		return err
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, a := range r.Answers {
		if _, err := tx.Exec(
			`INSERT INTO result_answers (result_id, position, question_id, selected_option_id, numeric_input)
			 VALUES (?, ?, ?, ?, ?)`,
			resultID, i, a.QuestionID, a.SelectedOptionID, a.NumericInput,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListResults returns all stored results with their answers, newest first.
func (s *Store) ListResults() ([]model.ExamResult, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, score, total_questions, submitted_at FROM results ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	results := []model.ExamResult{}
	for rows.Next() {
		var id int64
		var r model.ExamResult
		if err := rows.Scan(&id, &r.ExamID, &r.Score, &r.TotalQuestions, &r.Timestamp); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		answers, err := s.resultAnswers(id)
		if err != nil {
			return nil, err
		}
		results[i].Answers = answers
	}
	return results, nil
}

func (s *Store) resultAnswers(resultID int64) ([]model.StudentAnswer, error) {
	rows, err := s.db.Query(
		`SELECT question_id, selected_option_id, numeric_input
		 FROM result_answers WHERE result_id = ? ORDER BY position`, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := []model.StudentAnswer{}
	for rows.Next() {
		var a model.StudentAnswer
		if err := rows.Scan(&a.QuestionID, &a.SelectedOptionID, &a.NumericInput); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
