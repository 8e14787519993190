package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/academy/internal/engine"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

// subject returns the student a read request is about. Privileged users may
// ask about anyone through the student_id query parameter.
func subject(r *http.Request) string {
	c := caller(r)
	if id := r.URL.Query().Get("student_id"); id != "" && c.Privileged {
		return id
	}
	return c.StudentID
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req engine.PriceRequest
	if !decode(w, r, &req) {
		return
	}
	pq, err := h.eng.QuotePrice(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pq)
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req engine.OrderRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.eng.PlaceOrder(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, pg, err := h.eng.ListStudentOrders(r.Context(), subject(r), pageFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.Order]{Items: nonNil(orders), Pagination: pg})
}

func (h *Handler) handleMyEntitlements(w http.ResponseWriter, r *http.Request) {
	ent, err := h.eng.ListEntitlements(r.Context(), subject(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (h *Handler) handleDoorAccess(w http.ResponseWriter, r *http.Request) {
	doorID := chi.URLParam(r, "doorID")
	c := caller(r)
	ok := c.Privileged
	if !ok {
		var err error
		ok, err = h.eng.HasAccess(r.Context(), c.StudentID, doorID)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"door_id": doorID, "access": ok})
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, pg, err := h.eng.ListOrders(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.Order]{
		Items:      nonNil(orders),
		Pagination: pg,
		Summary:    appI18n.Tp(r.Context(), "OrdersFound", pg.TotalItems),
	})
}

func (h *Handler) handleCourseOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.eng.ListCourseOrders(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

func (h *Handler) handleApproveOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.eng.ApproveOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleRejectOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.eng.RejectOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req engine.GrantRequest
	if !decode(w, r, &req) {
		return
	}
	ent, err := h.eng.GrantEntitlement(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}
