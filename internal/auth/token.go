package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// verificationSalt namespaces the signing key so verification tokens are
// not interchangeable with any other token the secret might sign.
const verificationSalt = "email-verification-salt"

// DefaultVerificationMaxAge is the codec-level validity window. The
// verification flow applies its own, stricter freshness window on top.
const DefaultVerificationMaxAge = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("verification token is invalid")
	ErrTokenExpired = errors.New("verification token has expired")
)

// TokenCodec issues and verifies signed, time-limited tokens binding an
// email address. Tokens are self-contained; expiry is enforced against the
// embedded issuance time at verification.
type TokenCodec struct {
	key []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(verificationSalt))
	return &TokenCodec{key: mac.Sum(nil)}
}

type emailClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *TokenCodec) Issue(email string) (string, error) {
	claims := emailClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify checks the signature and that no more than maxAge has elapsed
// since issuance, returning the embedded email on success.
func (c *TokenCodec) Verify(token string, maxAge time.Duration) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &emailClaims{}, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*emailClaims)
	if !ok || claims.Email == "" || claims.IssuedAt == nil {
		return "", ErrInvalidToken
	}
	if time.Since(claims.IssuedAt.Time) > maxAge {
		return "", ErrTokenExpired
	}
	return claims.Email, nil
}
