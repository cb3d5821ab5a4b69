package identity

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateTTL = 10 * time.Minute

var ErrInvalidState = errors.New("invalid oauth state")

// StateClaims travel through the provider inside the OAuth state parameter.
type StateClaims struct {
	Redirect string `json:"redirect"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies signed OAuth state tokens. The client's
// loopback redirect rides inside the state so the callback needs no
// server-side storage.
type StateSigner struct {
	key []byte
	now func() time.Time
}

func NewStateSigner(key []byte) *StateSigner {
	return &StateSigner{key: key, now: time.Now}
}

func (s *StateSigner) Sign(redirect string) (string, error) {
	now := s.now()
	claims := StateClaims{
		Redirect: redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of state and returns the redirect
// it carries.
func (s *StateSigner) Verify(state string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	var claims StateClaims
	_, err := parser.ParseWithClaims(state, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return claims.Redirect, nil
}

// ValidateLoopbackRedirect accepts only plain-http redirects to a loopback
// address, which is where the lk client listens during sign-in.
func ValidateLoopbackRedirect(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse redirect: %w", err)
	}
	if u.Scheme != "http" {
		return fmt.Errorf("redirect scheme %q is not http", u.Scheme)
	}
	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("redirect host %q is not a loopback address", host)
	}
	return nil
}
