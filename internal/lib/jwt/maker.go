// Package jwt выпускает и проверяет сессионные JWT учётных записей.
//
// В токене хранится идентификатор учётной записи (subject) и email.
// Токен подписывается HS256 с секретом из конфигурации.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker описывает выпуск и разбор сессионных токенов.
type Maker interface {
	GenerateToken(accountID, email string) (string, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// Claims — полезная нагрузка сессионного токена.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AccountID возвращает идентификатор учётной записи из subject.
func (c *Claims) AccountID() string {
	return c.Subject
}

// MakerImpl реализует Maker на симметричном ключе.
type MakerImpl struct {
	secretKey string
	issuer    string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт MakerImpl.
func NewJWTMaker(secretKey, issuer string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		issuer:    issuer,
		tokenTTL:  ttl,
	}
}

// GenerateToken подписывает токен для учётной записи.
func (j *MakerImpl) GenerateToken(accountID, email string) (string, error) {
	const op = "jwt.GenerateToken"
	if accountID == "" {
		return "", fmt.Errorf("%s: empty account id", op)
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись, срок действия и издателя токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token has no subject"))
	}
	return claims, nil
}
