package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleRecordLessonView(w http.ResponseWriter, r *http.Request) {
	view, err := h.eng.RecordLessonView(r.Context(), caller(r), chi.URLParam(r, "lessonID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleLessonProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.eng.LessonProgress(r.Context(), subject(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
