package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens, err := Issue("terminal-1", "terminal", "timeclock", "secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	claims, err := Parse(tokens.AccessToken, "secret", "timeclock")
	require.NoError(t, err)
	assert.Equal(t, "terminal-1", claims.Subject)
	assert.Equal(t, "terminal", claims.Role)
}

func TestParseRejectsWrongKeyAndIssuer(t *testing.T) {
	tokens, err := Issue("terminal-1", "terminal", "timeclock", "secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	_, err = Parse(tokens.AccessToken, "other-secret", "timeclock")
	assert.Error(t, err)

	_, err = Parse(tokens.AccessToken, "secret", "someone-else")
	assert.Error(t, err)
}
