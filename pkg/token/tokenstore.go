package tokenstore

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// in-memory revocation list; entries expire together with the token they
// revoke. For multi-instance deployments this would move to Redis.
var revoked = cache.New(TokenTTL, 10*time.Minute)

// RevokeToken marks jti as revoked until exp.
func RevokeToken(jti string, exp time.Time) {
	if jti == "" {
		return
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		return
	}
	revoked.Set(jti, struct{}{}, ttl)
}

func IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	_, ok := revoked.Get(jti)
	return ok
}
