package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/smartexam/smartexam/internal/i18n"
)

const sessionCookieName = "session"

type loginRequest struct {
	AccessKey string `json:"access_key"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hash, err := h.store.AdminKeyHash()
	if err != nil {
		slog.Error("load admin key hash", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.AccessKey)) != nil {
		respondError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginError"))
		return
	}

	sess, err := h.store.CreateAuthSession()
	if err != nil {
		slog.Error("create auth session", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("admin logged in")
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := h.store.DeleteAuthSession(cookie.Value); err != nil {
			slog.Error("delete auth session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin rejects requests without a valid admin session cookie.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		sess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("get auth session", "error", err)
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if sess == nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
