package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rxdesk/rxdesk/internal/shared"
)

// Verifier validates HS256 bearer tokens and resolves the caller scope.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier constructs a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a token for the given scope. Used by tooling and tests.
func (v *Verifier) Issue(scope shared.Scope, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		BranchID:    scope.BranchID,
		Permissions: scope.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   scope.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses a token and returns the scope it grants.
func (v *Verifier) Verify(raw string) (shared.Scope, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return shared.Scope{}, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}
	if !token.Valid {
		return shared.Scope{}, shared.ErrInvalidToken
	}
	if strings.TrimSpace(claims.BranchID) == "" {
		return shared.Scope{}, shared.ErrMissingScope
	}
	return shared.Scope{
		Subject:     claims.Subject,
		BranchID:    claims.BranchID,
		Permissions: claims.Permissions,
	}, nil
}

func bearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(token), nil
}
