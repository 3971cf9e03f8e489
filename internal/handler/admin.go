package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/smartexam/smartexam/internal/i18n"
	"github.com/smartexam/smartexam/internal/model"
)

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	exam, err := h.store.GetExam(examID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
		return
	}
	if err != nil {
		slog.Error("get exam", "exam_id", examID, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

// handleUpsertExam creates or replaces an exam. Whatever arrives is
// normalized first, so hand-edited and AI-drafted payloads get the same
// treatment: fresh ids where missing, a title fallback, and at most one
// correct option per MCQ.
func (h *Handler) handleUpsertExam(w http.ResponseWriter, r *http.Request) {
	var exam model.Exam
	if err := json.NewDecoder(r.Body).Decode(&exam); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	model.Normalize(&exam)

	if err := h.store.UpsertExam(exam); err != nil {
		slog.Error("upsert exam", "exam_id", exam.ID, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("exam saved", "exam_id", exam.ID, "title", exam.Title, "questions", len(exam.Questions))
	respondJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	if err := h.store.DeleteExam(examID); err != nil {
		slog.Error("delete exam", "exam_id", examID, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("exam deleted", "exam_id", examID)
	w.WriteHeader(http.StatusNoContent)
}

// handleIngestDocuments turns raw extracted document text into a draft exam.
// The draft is returned for review, not saved; nothing persists on failure.
func (h *Handler) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		respondError(w, http.StatusBadRequest, "empty request body")
		return
	}

	exam, err := h.llm.ParseDocuments(r.Context(), string(body))
	if err != nil {
		slog.Error("parse documents", "error", err)
		respondError(w, http.StatusBadGateway, appI18n.T(r.Context(), "IngestFailed"))
		return
	}
	slog.Info("documents parsed into draft exam", "title", exam.Title, "questions", len(exam.Questions))
	respondJSON(w, http.StatusOK, exam)
}

type topicRequest struct {
	Topic string `json:"topic"`
}

func (h *Handler) handleIngestTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}

	exam, err := h.llm.GenerateByTopic(r.Context(), req.Topic)
	if err != nil {
		slog.Error("generate by topic", "topic", req.Topic, "error", err)
		respondError(w, http.StatusBadGateway, appI18n.T(r.Context(), "IngestFailed"))
		return
	}
	slog.Info("topic generated into draft exam", "topic", req.Topic, "questions", len(exam.Questions))
	respondJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResults()
	if err != nil {
		slog.Error("list results", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, results)
}
