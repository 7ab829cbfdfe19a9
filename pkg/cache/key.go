package cache

import "strings"

// CacheKey identifies a cached account lookup.
type CacheKey struct {
	// Route is the account-v1 routing value the lookup went to.
	Route string

	// Name is the game name part of the Riot ID.
	Name string

	// Tag is the tag line part of the Riot ID.
	Tag string
}

// String generates the Redis key.
// Format: lol:account:route:name#tag
//
// Riot IDs are case-insensitive, so the key is lowercased.
func (k CacheKey) String() string {
	return strings.ToLower("lol:account:" + k.Route + ":" + k.Name + "#" + k.Tag)
}
