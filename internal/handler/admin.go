package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/store"
	"github.com/pavelanni/exampaper/internal/validate"
)

type account struct {
	Username    string         `json:"username" validate:"required,max=64"`
	DisplayName string         `json:"display_name" validate:"max=128"`
	Password    string         `json:"password" validate:"required,min=8"`
	Role        model.UserRole `json:"role" validate:"omitempty,oneof=author admin"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var a account
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(a); err != nil {
		writeError(w, r, err)
		return
	}
	if a.Role == "" {
		a.Role = model.UserRoleAuthor
	}
	if a.DisplayName == "" {
		a.DisplayName = a.Username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u := model.User{
		Username:     a.Username,
		DisplayName:  a.DisplayName,
		PasswordHash: string(hash),
		Role:         a.Role,
		Active:       true,
	}
	id, err := h.store.CreateUser(u)
	if errors.Is(err, store.ErrUsernameTaken) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.GetUserByID(id)
	if err != nil || created == nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if id == currentUser(r).ID {
		writeError(w, r, validate.New("cannot deactivate your own account"))
		return
	}
	if err := h.store.ToggleUserActive(id); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.store.GetUserByID(id)
	if err != nil || u == nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
