// Package auth signs and verifies the OAuth state parameter that carries a
// login attempt through the identity provider.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRedirect is where a login lands when it names no valid target.
const DefaultRedirect = "/account"

// NonceBytes is the entropy of one state nonce.
const NonceBytes = 32

const issuer = "storefront-bff"

// StateClaims are the claims of a signed OAuth state value.
type StateClaims struct {
	Nonce      string `json:"nonce"`
	RedirectTo string `json:"redirect_to"`
	jwt.RegisteredClaims
}

// StateSigner issues and validates state tokens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner creates a signer with the given HMAC secret and lifetime.
func NewStateSigner(secret []byte, ttl time.Duration) *StateSigner {
	return &StateSigner{secret: secret, ttl: ttl, now: time.Now}
}

// TTL returns how long an issued state stays valid.
func (s *StateSigner) TTL() time.Duration { return s.ttl }

// NewNonce returns a random, URL-safe nonce from crypto/rand.
func NewNonce() (string, error) {
	b := make([]byte, NonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Sign creates a signed state token binding nonce to redirectTo.
func (s *StateSigner) Sign(nonce, redirectTo string) (string, error) {
	now := s.now().UTC()
	claims := &StateClaims{
		Nonce:      nonce,
		RedirectTo: redirectTo,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state token: %w", err)
	}
	return signed, nil
}

// Verify parses a state token and checks its signature, issuer and expiry.
func (s *StateSigner) Verify(state string) (*StateClaims, error) {
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse state token: %w", err)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid || claims.Nonce == "" {
		return nil, fmt.Errorf("invalid state token claims")
	}
	return claims, nil
}

// SanitizeRedirect keeps redirect targets on this origin. Anything that is
// not a plain absolute path becomes DefaultRedirect.
func SanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return DefaultRedirect
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") || strings.ContainsAny(target, "\r\n") {
		return DefaultRedirect
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultRedirect
	}
	return target
}
