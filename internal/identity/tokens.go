package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// sessionClaims represents JWT session claims
type sessionClaims struct {
	PatientID string `json:"patient_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
	}
}

// Issue signs a session token for the patient
func (ti *TokenIssuer) Issue(patient *types.Patient) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ti.ttl)

	claims := &sessionClaims{
		PatientID: patient.ID,
		Email:     patient.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    ti.issuer,
			Subject:   patient.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns its claims. Any failure is reported
// as types.ErrUnauthorized.
func (ti *TokenIssuer) Parse(tokenString string) (*types.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithIssuer(ti.issuer))
	if err != nil || !token.Valid {
		return nil, &types.AppError{
			Type:    types.ErrorTypeAuthentication,
			Code:    types.ErrCodeUnauthorized,
			Message: types.ErrUnauthorized.Message,
			Cause:   err,
		}
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || claims.Email == "" {
		return nil, types.ErrUnauthorized
	}

	return &types.SessionClaims{
		PatientID: claims.PatientID,
		Email:     claims.Email,
	}, nil
}
