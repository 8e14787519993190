package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/academy/internal/model"
)

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleExamView(w http.ResponseWriter, r *http.Request) {
	view, err := h.eng.GetExamView(r.Context(), caller(r), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	se, err := h.eng.StartAttempt(r.Context(), caller(r), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToPublicStudentExam(se))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	se, err := h.eng.AnswerQuestion(r.Context(), caller(r),
		chi.URLParam(r, "examID"), chi.URLParam(r, "questionID"), req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToPublicStudentExam(se))
}

func (h *Handler) handleFinishAttempt(w http.ResponseWriter, r *http.Request) {
	se, err := h.eng.FinishAttempt(r.Context(), caller(r), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToPublicStudentExam(se))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	list, pg, err := h.eng.History(r.Context(), subject(r), pageFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.PublicStudentExam]{Items: list, Pagination: pg})
}

func (h *Handler) handleStudentStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.eng.StudentStats(r.Context(), subject(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleLessonStats(w http.ResponseWriter, r *http.Request) {
	list, err := h.eng.LessonExamStats(r.Context(), chi.URLParam(r, "lessonID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
