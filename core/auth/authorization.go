package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medchain/core/audit"
)

// Roles carried in the "role" claim.
const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
	RoleAdmin   = "admin"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrForbidden    = errors.New("auth: role not permitted")
)

// Claims are the caller claims: sub is the doctor or patient id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// KeyProvider returns the HMAC key used to check tokens.
type KeyProvider interface {
	SigningKey() ([]byte, error)
}

// StaticKeyProvider serves a fixed secret from configuration.
type StaticKeyProvider struct {
	Secret []byte
}

func (s StaticKeyProvider) SigningKey() ([]byte, error) {
	if len(s.Secret) == 0 {
		return nil, errors.New("auth: no signing key set")
	}
	return s.Secret, nil
}

// Verifier checks HS256 bearer tokens.
type Verifier struct {
	Keys        KeyProvider
	AuditLogger audit.AuditLogger
}

// NewVerifier returns a Verifier for a shared secret.
func NewVerifier(secret string, logger audit.AuditLogger) *Verifier {
	return &Verifier{Keys: StaticKeyProvider{Secret: []byte(secret)}, AuditLogger: logger}
}

// Verify parses tokenString and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.Keys.SigningKey()
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		v.record(claims.Subject, "failure", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		v.record("", "failure", "missing subject")
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	v.record(claims.Subject, "success", "verified")
	return claims, nil
}

// Authorize verifies the token and checks that its role is one of roles.
func (v *Verifier) Authorize(tokenString string, roles ...string) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if claims.Role == r || claims.Role == RoleAdmin {
			return claims, nil
		}
	}
	v.record(claims.Subject, "denied", "role "+claims.Role+" not permitted")
	return nil, ErrForbidden
}

// Issue signs a token for subject. Used by tooling and tests.
func Issue(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (v *Verifier) record(subject, result, reason string) {
	if v.AuditLogger == nil {
		return
	}
	v.AuditLogger.LogEvent(audit.AuditEvent{
		EventType: audit.EventTokenVerification,
		EntityID:  subject,
		Result:    result,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}
