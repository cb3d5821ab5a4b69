package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/listkeep/internal/auth"
	"github.com/dukerupert/listkeep/internal/identity"
	"github.com/dukerupert/listkeep/internal/middleware"
	"github.com/dukerupert/listkeep/internal/store"
)

// IdentityProvider is the server side of federated sign-in.
type IdentityProvider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*identity.Identity, error)
}

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	provider     IdentityProvider
	states       *identity.StateSigner
	sessionTTL   time.Duration
	logger       *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	provider IdentityProvider,
	states *identity.StateSigner,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		provider:     provider,
		states:       states,
		sessionTTL:   sessionTTL,
		logger:       logger,
	}
}

// Login starts the provider flow. An optional redirect names the client's
// loopback listener that receives the session token at the end.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect != "" {
		if err := identity.ValidateLoopbackRedirect(redirect); err != nil {
			writeError(w, http.StatusBadRequest, "redirect must be a loopback http URL")
			return
		}
	}

	state, err := h.states.Sign(redirect)
	if err != nil {
		h.logger.Error("sign state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusFound)
}

// Callback completes the provider flow and issues a session.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	redirect, err := h.states.Verify(q.Get("state"))
	if err != nil {
		h.logger.Warn("oauth callback with bad state", "error", err)
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}

	if providerErr := q.Get("error"); providerErr != "" {
		h.logger.Info("sign-in not completed", "provider_error", providerErr)
		if redirect != "" {
			http.Redirect(w, r, withQuery(redirect, "error", providerErr), http.StatusFound)
			return
		}
		writeError(w, http.StatusUnauthorized, providerErr)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	id, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth exchange", "error", err)
		h.fail(w, r, redirect, "server_error", http.StatusBadGateway)
		return
	}

	user, err := h.userStore.UpsertByProvider(h.provider.Name(), id.Subject, id.Name, id.AvatarURL)
	if err != nil {
		h.logger.Error("upsert user", "error", err)
		h.fail(w, r, redirect, "server_error", http.StatusInternalServerError)
		return
	}

	sess, err := h.sessionStore.Create(user.ID, h.sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		h.fail(w, r, redirect, "server_error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("signed in", "user_id", user.ID, "provider", h.provider.Name())

	if redirect != "" {
		http.Redirect(w, r, withQuery(redirect, "token", sess.Token), http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       user,
	})
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, redirect, code string, status int) {
	if redirect != "" {
		http.Redirect(w, r, withQuery(redirect, "error", code), http.StatusFound)
		return
	}
	writeError(w, status, code)
}

// Logout deletes the caller's session, if any, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if sess, err := h.sessionStore.GetByToken(token); err == nil && sess != nil {
			if err := h.sessionStore.Delete(sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func withQuery(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
