package connection

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "conn-test",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		conn IntegrationConnection
		want TokenStatus
	}{
		{
			name: "no expiry is treated as non-expiring",
			conn: IntegrationConnection{AccessToken: "opaque-token"},
			want: TokenStatus{Valid: true},
		},
		{
			name: "future expiry is valid",
			conn: IntegrationConnection{AccessToken: "opaque-token", TokenExpiry: &future},
			want: TokenStatus{Valid: true},
		},
		{
			name: "expired with refresh token can rotate",
			conn: IntegrationConnection{AccessToken: "opaque-token", TokenExpiry: &past, RefreshToken: "rt"},
			want: TokenStatus{Expired: true},
		},
		{
			name: "expired without refresh token needs reauth",
			conn: IntegrationConnection{AccessToken: "opaque-token", TokenExpiry: &past},
			want: TokenStatus{Expired: true, RequiresReauth: true},
		},
		{
			name: "expiry exactly now counts as expired",
			conn: IntegrationConnection{AccessToken: "opaque-token", TokenExpiry: &now, RefreshToken: "rt"},
			want: TokenStatus{Expired: true},
		},
		{
			name: "no token at all",
			conn: IntegrationConnection{},
			want: TokenStatus{Valid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conn.Status(now))
		})
	}
}

func TestStatusFallsBackToJWTExpClaim(t *testing.T) {
	now := time.Now()

	t.Run("expired jwt", func(t *testing.T) {
		conn := IntegrationConnection{
			AccessToken:  signedToken(t, now.Add(-time.Minute)),
			RefreshToken: "rt",
		}
		status := conn.Status(now)
		assert.True(t, status.Expired)
		assert.False(t, status.RequiresReauth)
	})

	t.Run("live jwt", func(t *testing.T) {
		conn := IntegrationConnection{
			AccessToken: signedToken(t, now.Add(time.Hour)),
		}
		status := conn.Status(now)
		assert.True(t, status.Valid)
	})

	t.Run("stored expiry wins over claim", func(t *testing.T) {
		past := now.Add(-time.Hour)
		conn := IntegrationConnection{
			AccessToken: signedToken(t, now.Add(time.Hour)),
			TokenExpiry: &past,
		}
		status := conn.Status(now)
		assert.True(t, status.Expired)
	})

	t.Run("malformed token is treated as non-expiring", func(t *testing.T) {
		conn := IntegrationConnection{AccessToken: "not-a-jwt"}
		status := conn.Status(now)
		assert.True(t, status.Valid)
	})
}
