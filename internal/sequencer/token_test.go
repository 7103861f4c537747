package sequencer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferToken_RoundTrip(t *testing.T) {
	token, err := SignOfferToken("secret", 42, 7, TokenActionAccept, 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assignmentID, claims, err := ParseOfferToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), assignmentID)
	assert.Equal(t, int64(7), claims.WorkerID)
	assert.Equal(t, TokenActionAccept, claims.Action)
}

func TestOfferToken_DeclineActionPreserved(t *testing.T) {
	token, err := SignOfferToken("secret", 42, 7, TokenActionDecline, 15*time.Minute)
	require.NoError(t, err)

	_, claims, err := ParseOfferToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, TokenActionDecline, claims.Action)
}

// 密钥不匹配的令牌必须被拒绝
func TestOfferToken_WrongSecret(t *testing.T) {
	token, err := SignOfferToken("secret", 42, 7, TokenActionAccept, 15*time.Minute)
	require.NoError(t, err)

	_, _, err = ParseOfferToken("another-secret", token)
	assert.Error(t, err)
}

// 令牌有效期与响应窗口一致，窗口过后链接自动失效
func TestOfferToken_Expired(t *testing.T) {
	token, err := SignOfferToken("secret", 42, 7, TokenActionAccept, -time.Minute)
	require.NoError(t, err)

	_, _, err = ParseOfferToken("secret", token)
	assert.Error(t, err)
}

func TestOfferToken_Garbage(t *testing.T) {
	_, _, err := ParseOfferToken("secret", "not-a-jwt")
	assert.Error(t, err)
}
