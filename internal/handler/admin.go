package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/engine"
	"github.com/pavelanni/academy/internal/model"
)

func (h *Handler) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req engine.CouponRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.eng.CreateCoupon(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleCouponStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.eng.CouponStats(r.Context(), chi.URLParam(r, "couponID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleCreateAccessCode(w http.ResponseWriter, r *http.Request) {
	var req engine.AccessCodeRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.eng.CreateAccessCode(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req engine.ExamRequest
	if !decode(w, r, &req) {
		return
	}
	exam, err := h.eng.CreateExam(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req engine.QuestionRequest
	if !decode(w, r, &req) {
		return
	}
	exam, err := h.eng.AddQuestion(r.Context(), chi.URLParam(r, "examID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

func (h *Handler) handleExportExam(w http.ResponseWriter, r *http.Request) {
	export, err := h.store.ExportExamResults(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// handleImportCatalog accepts a catalog either as the catalog_file field of
// a multipart form or as a raw JSON body.
func (h *Handler) handleImportCatalog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	name := r.URL.Query().Get("name")
	var data []byte
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			writeErrorCode(w, r, http.StatusBadRequest, "BadRequest")
			return
		}
		file, header, ferr := r.FormFile("catalog_file")
		if ferr != nil {
			writeErrorCode(w, r, http.StatusBadRequest, "BadRequest")
			return
		}
		defer file.Close()
		if name == "" {
			name = header.Filename
		}
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BadRequest")
		return
	}
	if name == "" {
		name = "upload"
	}

	res, err := h.eng.ImportCatalog(r.Context(), name, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Governorate string         `json:"governorate"`
	Role        model.UserRole `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, r, apperr.ErrValidation.With("username and password required"))
		return
	}
	switch req.Role {
	case "":
		req.Role = model.UserRoleStudent
	case model.UserRoleStudent, model.UserRoleTeacher, model.UserRoleAdmin:
	default:
		writeError(w, r, apperr.ErrValidation.With("unknown role %q", req.Role))
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Governorate:  strings.TrimSpace(req.Governorate),
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if err := h.store.ToggleUserActive(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("toggled user active flag", "user", id)
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
