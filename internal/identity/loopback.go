package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/listkeep/internal/model"
)

// SignInResult is the outcome of an interactive sign-in. Exactly one of User,
// Cancelled or Err is set.
type SignInResult struct {
	User      *model.User
	Cancelled bool
	Err       error
}

// LoopbackProvider signs the user in through their browser: the server's
// OAuth flow ends with a redirect to a listener on 127.0.0.1 carrying the
// session token.
type LoopbackProvider struct {
	serverURL string
	creds     *CredentialStore
	client    *http.Client
	prompt    func(loginURL string)
	logger    *slog.Logger
}

// NewLoopbackProvider creates a provider for serverURL. prompt shows the
// login URL to the user.
func NewLoopbackProvider(serverURL string, creds *CredentialStore, prompt func(string), logger *slog.Logger) *LoopbackProvider {
	return &LoopbackProvider{
		serverURL: strings.TrimRight(serverURL, "/"),
		creds:     creds,
		client:    &http.Client{Timeout: 15 * time.Second},
		prompt:    prompt,
		logger:    logger.With("component", "identity"),
	}
}

type callback struct {
	token string
	err   string
}

// SignIn runs one interactive sign-in. Denying consent at the provider or
// cancelling ctx yields a Cancelled result rather than an error.
func (p *LoopbackProvider) SignIn(ctx context.Context) SignInResult {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return SignInResult{Err: fmt.Errorf("listen for callback: %w", err)}
	}

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		cb := callback{
			token: r.URL.Query().Get("token"),
			err:   r.URL.Query().Get("error"),
		}
		if cb.token == "" && cb.err == "" {
			cb.err = "missing_token"
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if cb.err != "" {
			fmt.Fprintln(w, "Sign-in did not complete. You can close this window.")
		} else {
			fmt.Fprintln(w, "Signed in to listkeep. You can close this window.")
		}
		select {
		case results <- cb:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	redirect := fmt.Sprintf("http://%s/callback", ln.Addr().String())
	loginURL := p.serverURL + "/auth/login?redirect=" + url.QueryEscape(redirect)
	p.logger.Debug("waiting for sign-in callback", "redirect", redirect)
	p.prompt(loginURL)

	var cb callback
	select {
	case <-ctx.Done():
		return SignInResult{Cancelled: true}
	case cb = <-results:
	}

	switch cb.err {
	case "":
	case "access_denied":
		return SignInResult{Cancelled: true}
	default:
		return SignInResult{Err: fmt.Errorf("sign-in failed: %s", cb.err)}
	}

	user, err := p.fetchMe(ctx, cb.token)
	if err != nil {
		return SignInResult{Err: err}
	}
	if err := p.creds.Save(Credentials{ServerURL: p.serverURL, Token: cb.token, User: *user}); err != nil {
		return SignInResult{Err: fmt.Errorf("save credentials: %w", err)}
	}
	p.logger.Info("signed in", "user_id", user.ID)
	return SignInResult{User: user}
}

// CurrentUser returns the signed-in user, or nil.
func (p *LoopbackProvider) CurrentUser() *model.User {
	c := p.Credentials()
	if c == nil {
		return nil
	}
	return &c.User
}

// Credentials returns the saved credentials, or nil when signed out or when
// they belong to a different server.
func (p *LoopbackProvider) Credentials() *Credentials {
	c, err := p.creds.Load()
	if err != nil {
		p.logger.Warn("load credentials", "error", err)
		return nil
	}
	if c == nil || (c.ServerURL != "" && c.ServerURL != p.serverURL) {
		return nil
	}
	return c
}

// SignOut ends the server session, best effort, and forgets the local
// credentials.
func (p *LoopbackProvider) SignOut(ctx context.Context) error {
	if c := p.Credentials(); c != nil {
		if err := p.logout(ctx, c.Token); err != nil {
			p.logger.Warn("server logout failed", "error", err)
		}
	}
	return p.creds.Delete()
}

func (p *LoopbackProvider) fetchMe(ctx context.Context, token string) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/api/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}

	var user model.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if user.ID == "" {
		return nil, errors.New("profile has no user id")
	}
	return &user, nil
}

func (p *LoopbackProvider) logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
