package cache

import "time"

// Entry is a cached Riot ID to PUUID mapping.
type Entry struct {
	// PUUID is the resolved player id.
	PUUID string `json:"puuid"`

	// CachedAt is when the mapping was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the mapping should be resolved again.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
