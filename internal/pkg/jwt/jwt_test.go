package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: testSecret, Issuer: "storelinker", TTL: time.Hour})
	require.NoError(t, err)
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)

	_, err = NewManager(Config{Secret: "short"})
	assert.Error(t, err)
}

func TestGenerateAndVerify(t *testing.T) {
	m := newTestManager(t)

	token, jti, err := m.Generator.Generate(Subject{
		UserID:    "65a0c0ffee0000000000beef",
		Email:     "v@x.com",
		UserType:  "vendor",
		Role:      "vendor",
		SessionID: "abc123",
		StoreName: "V Shop",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	claims, err := m.Verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "65a0c0ffee0000000000beef", claims.UserID)
	assert.Equal(t, "abc123", claims.SessionID)
	assert.Equal(t, "V Shop", claims.StoreName)
	assert.Equal(t, jti, claims.ID)
	assert.True(t, claims.HasSession())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyExpired(t *testing.T) {
	m := newTestManager(t)
	m.Generator.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.Generator.Generate(Subject{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	_, err = m.Verifier.Verify(token)
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestVerifyRejectsTampering(t *testing.T) {
	m := newTestManager(t)

	token, _, err := m.Generator.Generate(Subject{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[2] = strings.Repeat("A", len(parts[2]))

	_, err = m.Verifier.Verify(strings.Join(parts, "."))
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = m.Verifier.Verify("garbage")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsOtherSecretAndIssuer(t *testing.T) {
	m := newTestManager(t)

	other := NewGenerator([]byte(strings.Repeat("z", 32)), "storelinker", time.Hour)
	token, _, err := other.Generate(Subject{UserID: "u1"})
	require.NoError(t, err)
	_, err = m.Verifier.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	wrongIssuer := NewGenerator([]byte(testSecret), "someone-else", time.Hour)
	token, _, err = wrongIssuer.Generate(Subject{UserID: "u1"})
	require.NoError(t, err)
	_, err = m.Verifier.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager(t)

	tok := gojwt.NewWithClaims(gojwt.SigningMethodNone, &Claims{UserID: "u1"})
	unsigned, err := tok.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verifier.Verify(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
