// Package auth implements the admin authentication boundary that gates
// recommendation approval and live-trading toggles (§4.9's human approval
// gate): password + TOTP second factor, issuing a short-lived JWT for
// subsequent API calls. No teacher file covers an HTTP auth boundary, so
// this is grounded directly on the three libraries the pack carries for the
// purpose: golang-jwt/jwt/v5 for the token, pquerna/otp for TOTP, and
// golang.org/x/crypto/bcrypt for the password hash.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"hunter/internal/herr"
)

// TokenTTL is how long an issued admin JWT remains valid.
const TokenTTL = 12 * time.Hour

// Claims is the admin JWT payload.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Authenticator verifies admin credentials and issues/validates JWTs.
type Authenticator struct {
	passwordHash []byte
	totpSecret   string
	signingKey   []byte
}

// New constructs an Authenticator from the environment-sourced bcrypt hash,
// TOTP secret, and JWT signing key.
func New(passwordHash, totpSecret, signingKey string) (*Authenticator, error) {
	if passwordHash == "" || totpSecret == "" || signingKey == "" {
		return nil, fmt.Errorf("admin auth not configured: %w", herr.ErrConfigurationMissing)
	}
	return &Authenticator{passwordHash: []byte(passwordHash), totpSecret: totpSecret, signingKey: []byte(signingKey)}, nil
}

// HashPassword bcrypt-hashes a plaintext password for storage in the
// environment (used by an operator setup step, not at request time).
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies password and a current TOTP code, returning a signed JWT
// valid for TokenTTL on success.
func (a *Authenticator) Login(password, totpCode string, now time.Time) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", fmt.Errorf("invalid admin password: %w", herr.ErrAuthentication)
	}
	if !totp.Validate(totpCode, a.totpSecret) {
		return "", fmt.Errorf("invalid totp code: %w", herr.ErrAuthentication)
	}

	claims := Claims{
		Subject: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token, returning its claims.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid admin token: %w", herr.ErrAuthentication)
	}
	return claims, nil
}

// GenerateTOTPSecret creates a new base32 TOTP secret for operator
// enrolment (paired with an authenticator app).
func GenerateTOTPSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "hunter", AccountName: accountName})
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), nil
}
