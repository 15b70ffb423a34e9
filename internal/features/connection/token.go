package connection

import (
	"time"

	"go-bms/pkg/utils"
)

// EffectiveExpiry returns the token expiry to act on: the stored
// timestamp when present, otherwise the exp claim of a JWT access token.
// Connections with neither are treated as non-expiring.
func (c *IntegrationConnection) EffectiveExpiry() *time.Time {
	if c.TokenExpiry != nil {
		return c.TokenExpiry
	}
	if c.AccessToken == "" {
		return nil
	}
	expiry, err := utils.TokenExpiry(c.AccessToken)
	if err != nil {
		return nil
	}
	return expiry
}

// Status derives the token status at the given instant:
// expired when an expiry is known and not after now, reauth required
// when expired with no refresh token to rotate automatically.
func (c *IntegrationConnection) Status(now time.Time) TokenStatus {
	expiry := c.EffectiveExpiry()
	expired := expiry != nil && !expiry.After(now)

	return TokenStatus{
		Valid:          !expired,
		Expired:        expired,
		RequiresReauth: expired && c.RefreshToken == "",
	}
}
