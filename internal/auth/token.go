package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authorization header is missing")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenVerifier resolves a caller identity from a bearer credential. Tokens
// are HS256 JWTs issued by the portal's auth flow; the subject claim carries
// the user id that profiles are keyed on.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// ResolveUserID extracts and verifies the bearer token from an Authorization
// header value and returns the token subject.
func (v *TokenVerifier) ResolveUserID(authorization string) (string, error) {
	if authorization == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidToken
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}

	return sub, nil
}
