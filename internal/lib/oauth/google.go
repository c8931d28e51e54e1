// Package oauth проверяет ID-токены Google по опубликованному набору ключей JWKS.
package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

var googleIssuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

// Identity — проверенные данные пользователя из ID-токена.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleClaims — полезная нагрузка ID-токена Google.
type GoogleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Verifier проверяет подпись, аудиторию и издателя ID-токена.
type Verifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewGoogleVerifier создаёт Verifier, загружающий ключи с jwksURL.
func NewGoogleVerifier(clientID, jwksURL string) (*Verifier, error) {
	const op = "oauth.NewGoogleVerifier"
	if clientID == "" {
		return nil, fmt.Errorf("%s: client id must be set", op)
	}
	k, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to init JWKS keyfunc: %w", op, err)
	}
	return NewVerifier(clientID, k.Keyfunc), nil
}

// NewVerifier создаёт Verifier с заданным источником ключей.
func NewVerifier(clientID string, kf jwt.Keyfunc) *Verifier {
	return &Verifier{
		keyfunc: kf,
		parser: jwt.NewParser(
			jwt.WithAudience(clientID),
			jwt.WithLeeway(defaultLeeway),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		),
	}
}

// Verify разбирает ID-токен и возвращает личность пользователя.
// Email должен быть подтверждён Google.
func (v *Verifier) Verify(idToken string) (*Identity, error) {
	const op = "oauth.Verify"

	claims := &GoogleClaims{}
	token, err := v.parser.ParseWithClaims(idToken, claims, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("%s: unexpected issuer %q", op, claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token missing sub"))
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("%s: email is not verified", op)
	}
	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
