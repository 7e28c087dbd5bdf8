package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, "care-link")
	patient := &types.Patient{ID: "USER-1", Email: "jane@x.com"}

	token, expiresAt, err := issuer.Issue(patient)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "USER-1", claims.PatientID)
	assert.Equal(t, "jane@x.com", claims.Email)
}

func TestTokenIssuer_RejectsInvalidTokens(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, "care-link")
	patient := &types.Patient{ID: "USER-1", Email: "jane@x.com"}

	otherSecret, _, err := NewTokenIssuer("other-secret", time.Hour, "care-link").Issue(patient)
	require.NoError(t, err)
	otherIssuer, _, err := NewTokenIssuer("test-secret", time.Hour, "someone-else").Issue(patient)
	require.NoError(t, err)
	expired, _, err := NewTokenIssuer("test-secret", -time.Minute, "care-link").Issue(patient)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"expired":      expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Parse(token)
			assert.ErrorIs(t, err, types.ErrUnauthorized)
		})
	}
}
