package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose назначение одноразового токена
type Purpose string

const (
	PurposeConfirm Purpose = "confirm"
	PurposeReset   Purpose = "reset"
)

var (
	// ErrInvalidToken токен повреждён, просрочен или выдан для другой цели
	ErrInvalidToken = errors.New("invalid or expired token")
)

type tokenClaims struct {
	Purpose Purpose `json:"purpose"`
	Stamp   string  `json:"stamp,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer выпускает и проверяет HMAC-подписанные токены для писем.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenIssuer создаёт выпускатель токенов
func NewTokenIssuer(secret, issuer string) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue выпускает токен для аккаунта с заданным сроком жизни.
// stamp привязывает токен к состоянию аккаунта и может быть пустым.
func (t *TokenIssuer) Issue(subject string, purpose Purpose, stamp string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := tokenClaims{
		Purpose: purpose,
		Stamp:   stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse проверяет токен и возвращает ID аккаунта и stamp, с которым он выпущен.
func (t *TokenIssuer) Parse(token string, purpose Purpose) (string, string, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return "", "", ErrInvalidToken
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Stamp, nil
}

// PasswordStamp отпечаток хеша пароля. Меняется при каждой смене пароля,
// поэтому токен сброса перестаёт действовать после первого использования.
func PasswordStamp(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
