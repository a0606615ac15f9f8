// Package auth is the credential collaborator adapter: it binds an
// authenticated user identity and an exam identity into a signed token and
// recovers both on every request. The monitoring core only ever asks two
// questions of it: who is this, and which exam are they in.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrNoExam       = errors.New("auth: no exam bound to token")
)

// Claims carries the two identifiers the monitoring core requires.
// ExamID may be zero when a token was issued outside an exam context.
type Claims struct {
	UserID int64 `json:"user_id"`
	ExamID int64 `json:"exam_id,omitempty"`
	jwt.RegisteredClaims
}

// CurrentUserID returns the authenticated user, false when unset.
func (c *Claims) CurrentUserID() (int64, bool) { return c.UserID, c.UserID != 0 }

// CurrentExamID returns the exam bound to the token, false when unset.
func (c *Claims) CurrentExamID() (int64, bool) { return c.ExamID, c.ExamID != 0 }

// Tokens issues and validates exam tokens with an HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue signs a token binding userID and examID for the configured TTL.
func (t *Tokens) Issue(userID, examID int64) (string, error) {
	claims := Claims{
		UserID: userID,
		ExamID: examID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(t.now().Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(t.now()),
			Issuer:    "proctord",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and verifies a token string.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
