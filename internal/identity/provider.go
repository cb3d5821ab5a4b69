// Package identity federates sign-in to an OAuth2 provider on the server and
// drives the browser loopback sign-in on the client.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Identity is what the provider tells us about a signed-in person.
type Identity struct {
	Subject   string
	Name      string
	AvatarURL string
}

// Provider is an OAuth2 authorization-code provider with an OIDC-style
// userinfo endpoint.
type Provider struct {
	name        string
	oauthConfig *oauth2.Config
	userInfoURL string
}

type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Name == "" {
		return nil, errors.New("oauth provider name is required")
	}
	if cfg.ClientID == "" || cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" || cfg.RedirectURL == "" {
		return nil, errors.New("oauth configuration is incomplete")
	}

	return &Provider{
		name: cfg.Name,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// AuthURL returns the provider authorization URL carrying state.
func (p *Provider) AuthURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

type userInfo struct {
	Sub     string `json:"sub"`
	ID      any    `json:"id"`
	Name    string `json:"name"`
	Login   string `json:"login"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	Avatar  string `json:"avatar_url"`
}

// Exchange trades an authorization code for the signed-in identity.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := p.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return info.identity()
}

// identity normalizes OIDC ("sub", "picture") and GitHub-style ("id",
// "avatar_url") userinfo documents.
func (u userInfo) identity() (*Identity, error) {
	id := &Identity{
		Subject:   u.Sub,
		Name:      firstNonEmpty(u.Name, u.Login, u.Email),
		AvatarURL: firstNonEmpty(u.Picture, u.Avatar),
	}
	if id.Subject == "" && u.ID != nil {
		switch v := u.ID.(type) {
		case string:
			id.Subject = v
		case float64:
			id.Subject = fmt.Sprintf("%.0f", v)
		}
	}
	if id.Subject == "" {
		return nil, errors.New("userinfo has no subject")
	}
	return id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ScopesFromEnv parses a comma-separated list of scopes.
func ScopesFromEnv(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}
