package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/validate"
)

const sessionCookieName = "session"

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

// sessionToken reads the token from the session cookie or a bearer header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireAuth rejects requests without a valid session for an active user.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		authSess, err := h.store.GetAuthSession(token)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		if authSess == nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "session expired"})
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		})
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(c); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.store.GetUserByUsername(c.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.Active ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		slog.Warn("failed login", "username", c.Username)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid username or password"})
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.store.DeleteAuthSession(token); err != nil {
			slog.Error("failed to delete auth session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}
