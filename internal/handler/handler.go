package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/smartexam/smartexam/internal/i18n"
	"github.com/smartexam/smartexam/internal/llm"
	"github.com/smartexam/smartexam/internal/model"
	"github.com/smartexam/smartexam/internal/session"
	"github.com/smartexam/smartexam/internal/store"
)

// resultRetention bounds how long a finished session's result stays
// addressable at its session URL. The store holds the durable copy.
const resultRetention = time.Hour

type retainedResult struct {
	result model.ExamResult
	doneAt time.Time
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	llm      *llm.Client
	sessions *session.Registry
	config   model.ExamConfig

	mu      sync.Mutex
	results map[string]retainedResult // finished session id -> result
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, cfg model.ExamConfig) *Handler {
	return &Handler{
		store:    s,
		llm:      l,
		sessions: session.NewRegistry(),
		config:   cfg,
		results:  make(map[string]retainedResult),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Get("/api/exams", h.handleListExams)
	r.Post("/api/exams/{examID}/start", h.handleStartExam)
	r.Get("/api/sessions/{sessionID}", h.handleSessionState)
	r.Post("/api/sessions/{sessionID}/begin", h.handleBegin)
	r.Post("/api/sessions/{sessionID}/answer", h.handleAnswer)
	r.Post("/api/sessions/{sessionID}/action", h.handleAction)
	r.Post("/api/sessions/{sessionID}/submit", h.handleSubmit)
	r.Delete("/api/sessions/{sessionID}", h.handleExit)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/api/exams/{examID}", h.handleGetExam)
		r.Post("/api/exams", h.handleUpsertExam)
		r.Delete("/api/exams/{examID}", h.handleDeleteExam)
		r.Post("/api/ingest/documents", h.handleIngestDocuments)
		r.Post("/api/ingest/topic", h.handleIngestTopic)
		r.Get("/api/results", h.handleListResults)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		slog.Error("list exams", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summaries := make([]model.ExamSummary, 0, len(exams))
	for _, e := range exams {
		summaries = append(summaries, model.SummaryOf(e))
	}
	respondJSON(w, http.StatusOK, summaries)
}

// startResponse is everything a student needs for one attempt: sanitized
// questions in session order plus the instructions shown before the
// acknowledgement gate.
type startResponse struct {
	SessionID       string               `json:"session_id"`
	Title           string               `json:"title"`
	Instructions    []string             `json:"instructions"`
	DurationSeconds int                  `json:"duration_seconds"`
	Questions       []model.QuestionView `json:"questions"`
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
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

	sess := session.Build(exam)
	taker := session.NewTaker(sess, h.config.Duration)
	sessionID := h.sessions.Add(taker)
	taker.OnExpire(func(answers []model.StudentAnswer) {
		h.finishSession(sessionID, taker, answers)
		slog.Info("session auto-submitted on timer expiry", "session_id", sessionID)
	})

	slog.Info("session started",
		"session_id", sessionID,
		"exam_id", exam.ID,
		"questions", len(sess.Questions),
	)
	respondJSON(w, http.StatusCreated, startResponse{
		SessionID:       sessionID,
		Title:           sess.Title,
		Instructions:    sess.Instructions,
		DurationSeconds: int(h.config.Duration.Seconds()),
		Questions:       model.ViewsOf(sess.Questions),
	})
}

// finishSession persists the scored result and retires the live taker.
// Manual submit and timer expiry both funnel through here; the taker's
// terminal transition guarantees only one of them ever reaches it.
func (h *Handler) finishSession(sessionID string, taker *session.Taker, answers []model.StudentAnswer) model.ExamResult {
	result := session.Score(taker.Exam(), answers)
	if err := h.store.AppendResult(result); err != nil {
		slog.Error("append result", "session_id", sessionID, "error", err)
	}
	h.mu.Lock()
	h.pruneResultsLocked(time.Now())
	h.results[sessionID] = retainedResult{result: result, doneAt: time.Now()}
	h.mu.Unlock()
	h.sessions.Remove(sessionID)
	return result
}

// pruneResultsLocked drops retained results older than resultRetention.
func (h *Handler) pruneResultsLocked(now time.Time) {
	for id, entry := range h.results {
		if now.Sub(entry.doneAt) > resultRetention {
			delete(h.results, id)
		}
	}
}

func (h *Handler) finishedResult(sessionID string) (model.ExamResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.results[sessionID]
	return entry.result, ok
}

func (h *Handler) taker(w http.ResponseWriter, r *http.Request) (*session.Taker, string, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	taker := h.sessions.Get(sessionID)
	if taker == nil {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "SessionNotFound"))
		return nil, sessionID, false
	}
	return taker, sessionID, true
}

func (h *Handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	taker := h.sessions.Get(sessionID)
	if taker == nil {
		if result, ok := h.finishedResult(sessionID); ok {
			respondJSON(w, http.StatusOK, map[string]any{
				"phase":  session.PhaseSubmitted,
				"result": result,
			})
			return
		}
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "SessionNotFound"))
		return
	}
	respondJSON(w, http.StatusOK, taker.Snapshot())
}

func (h *Handler) handleBegin(w http.ResponseWriter, r *http.Request) {
	taker, _, ok := h.taker(w, r)
	if !ok {
		return
	}
	if err := taker.Begin(); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, taker.Snapshot())
}

type answerRequest struct {
	SelectedOptionID string  `json:"selected_option_id"`
	NumericInput     *string `json:"numeric_input"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	taker, _, ok := h.taker(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	switch {
	case req.NumericInput != nil:
		err = taker.EnterNumeric(*req.NumericInput)
	default:
		err = taker.SelectOption(req.SelectedOptionID)
	}
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, taker.Snapshot())
}

type actionRequest struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	taker, _, ok := h.taker(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	switch req.Action {
	case "save_next":
		err = taker.SaveAndNext()
	case "clear":
		err = taker.ClearResponse()
	case "save_mark":
		err = taker.SaveAndMarkForReview()
	case "mark_next":
		err = taker.MarkForReviewAndNext()
	case "next":
		err = taker.Next()
	case "prev":
		err = taker.Prev()
	case "jump":
		err = taker.JumpTo(req.Index)
	default:
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "UnknownAction"))
		return
	}
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, taker.Snapshot())
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	taker := h.sessions.Get(sessionID)
	if taker == nil {
		// The timer may have beaten the student to it.
		if result, ok := h.finishedResult(sessionID); ok {
			respondJSON(w, http.StatusOK, result)
			return
		}
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "SessionNotFound"))
		return
	}

	answers, err := taker.Submit()
	if err != nil {
		if result, ok := h.finishedResult(sessionID); ok {
			respondJSON(w, http.StatusOK, result)
			return
		}
		h.respondSessionError(w, r, err)
		return
	}

	result := h.finishSession(sessionID, taker, answers)
	slog.Info("session submitted",
		"session_id", sessionID,
		"exam_id", result.ExamID,
		"score", result.Score,
		"total", result.TotalQuestions,
	)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExit(w http.ResponseWriter, r *http.Request) {
	taker, sessionID, ok := h.taker(w, r)
	if !ok {
		return
	}
	if err := taker.Exit(); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	h.sessions.Remove(sessionID)
	slog.Info("session exited", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// respondSessionError maps state machine errors onto HTTP statuses.
// Validation rejections are conflict responses with localized messages,
// never server errors.
func (h *Handler) respondSessionError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, session.ErrAnswerRequired):
		respondError(w, http.StatusConflict, appI18n.T(ctx, "AnswerRequired"))
	case errors.Is(err, session.ErrNotStarted):
		respondError(w, http.StatusConflict, appI18n.T(ctx, "SessionNotStarted"))
	case errors.Is(err, session.ErrAlreadyStarted):
		respondError(w, http.StatusConflict, appI18n.T(ctx, "SessionAlreadyStarted"))
	case errors.Is(err, session.ErrFinished):
		respondError(w, http.StatusConflict, appI18n.T(ctx, "SessionFinished"))
	case errors.Is(err, session.ErrBadIndex):
		respondError(w, http.StatusBadRequest, appI18n.T(ctx, "BadQuestionIndex"))
	case errors.Is(err, session.ErrUnknownOption), errors.Is(err, session.ErrWrongAnswerKind):
		respondError(w, http.StatusBadRequest, appI18n.T(ctx, "InvalidAnswer"))
	default:
		slog.Error("session action failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
