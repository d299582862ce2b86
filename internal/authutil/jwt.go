package authutil

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 tokens signed with a shared secret.
type JWTResolver struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (*Identity, error) {
	var c claims
	if _, err := r.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: parsing token: %w", ErrUnauthorized, err)
	}

	if c.Email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrUnauthorized)
	}

	return &Identity{
		Email:     c.Email,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
	}, nil
}

// SignToken issues a token JWTResolver accepts. It is meant for tests and tooling.
func SignToken(secret string, identity *Identity, c jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Email:            identity.Email,
		GivenName:        identity.FirstName,
		FamilyName:       identity.LastName,
		RegisteredClaims: c,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
