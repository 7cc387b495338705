package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "profile-editor"

// TokenService signs the editor session id into the session cookie so a
// client cannot pick another session's id.
type TokenService struct {
	secretKey     []byte
	tokenLifespan time.Duration
	now           func() time.Time
}

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func NewTokenService(secretKey string, tokenLifespan time.Duration) *TokenService {
	return &TokenService{
		secretKey:     []byte(secretKey),
		tokenLifespan: tokenLifespan,
		now:           time.Now,
	}
}

func (s *TokenService) Sign(sessionID string) (string, error) {
	now := s.now()
	claims := Claims{
		sessionID,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifespan)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   sessionID,
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("cannot sign session token: %w", err)
	}
	return signed, nil
}

// Verify returns the session id carried by a token produced by Sign.
func (s *TokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signature algorithm: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("error when parsing session claims")
	}
	return claims.SessionID, nil
}
