package users

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("printflow123")
	require.NoError(t, err)
	require.NotEqual(t, "printflow123", hash)

	require.True(t, VerifyPassword(hash, "printflow123"))
	require.False(t, VerifyPassword(hash, "printflow124"))
}
