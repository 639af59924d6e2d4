package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired reports whether raw is a JWT whose exp claim is already in
// the past. The signature is not checked; the backend remains the authority
// and this only lets the client drop a credential it knows is stale before
// spending a round trip on it. Tokens that do not parse as JWTs, or carry
// no exp claim, are never treated as expired locally.
func tokenExpired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
