package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aitasks/internal/config"
	"aitasks/internal/utils"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// Authenticator turns an Authorization header into a caller id.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Auth validates bearer JWTs signed either with a shared HS256 secret or
// with RS256 keys published as a JWKS.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Secret   []byte
	Audience string
	Issuer   string

	parser *jwt.Parser
	now    func() time.Time
}

// NewHMACAuth validates HS256 tokens signed with secret.
func NewHMACAuth(secret []byte, audience, issuer string) *Auth {
	return &Auth{
		Secret:   secret,
		Audience: audience,
		Issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:      time.Now,
	}
}

// NewJWKSAuth validates RS256 tokens against jwks.
func NewJWKSAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{
		JWKS:     jwks,
		Audience: audience,
		Issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		now:      time.Now,
	}
}

// NewAuthFromConfig builds the authenticator for cfg. secret is the resolved
// jwt secret (keyring, env or config). It returns nil when neither a secret
// nor a JWKS URL is configured; the server then only serves anonymous calls.
func NewAuthFromConfig(cfg config.ServerConfig, secret string) (*Auth, error) {
	switch {
	case secret != "":
		return NewHMACAuth([]byte(secret), cfg.Audience, cfg.Issuer), nil
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				utils.Warnf("jwks refresh failed: %v", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		return NewJWKSAuth(jwks, cfg.Audience, cfg.Issuer), nil
	}
	return nil, nil
}

// UserIDFromAuthHeader extracts the caller id from the Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	token, err := bearerToken(h)
	if err != nil {
		return "", err
	}
	return a.UserIDFromBearer(token)
}

// UserIDFromBearer verifies token and returns its sub claim.
func (a *Auth) UserIDFromBearer(token string) (string, error) {
	parsed, err := a.parser.Parse(token, a.keyFor)
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	// one minute of clock skew
	now := a.now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return "", errors.New("token used before issued")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return "", errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return "", errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || strings.TrimSpace(sub) == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func (a *Auth) keyFor(t *jwt.Token) (any, error) {
	if a.Secret != nil {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.Secret, nil
	}
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}
	return a.JWKS.Keyfunc(t)
}

// bearerToken strips the "Bearer " prefix and checks the token has the
// three dot-separated JWT segments.
func bearerToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok || token == "" {
		return "", errBadAuthorization
	}
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
