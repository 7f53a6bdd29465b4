package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, false, zap.NewNop())

	hash, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)

	assert.Equal(t, Result{OK: true}, h.Verify("secret", hash))
	assert.False(t, h.Verify("wrong", hash).OK)
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost, false, nil).Hash("")
	assert.Error(t, err)
}

func TestPlaintextFallbackDisabledByDefault(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, false, nil)
	assert.False(t, h.Verify("pw123", "pw123").OK)
}

func TestPlaintextFallbackRequestsRehash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, true, zap.NewNop())

	res := h.Verify("pw123", "pw123")
	assert.True(t, res.OK)
	assert.True(t, res.NeedsRehash)

	assert.False(t, h.Verify("nope", "pw123").OK)
}

func TestPlaintextFallbackNeverMatchesHashes(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, true, zap.NewNop())
	hash, err := h.Hash("secret")
	require.NoError(t, err)

	// Submitting the stored hash itself must not authenticate.
	assert.False(t, h.Verify(hash, hash).OK)
}

func TestVerifyFlagsLowCostHashes(t *testing.T) {
	low, err := NewHasher(bcrypt.MinCost, false, nil).Hash("secret")
	require.NoError(t, err)

	res := NewHasher(bcrypt.MinCost+1, false, nil).Verify("secret", low)
	assert.True(t, res.OK)
	assert.True(t, res.NeedsRehash)
}
