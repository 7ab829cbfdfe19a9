// Package cache provides the Redis-backed identity cache.
//
// Resolving a Riot ID (name#tag) to a PUUID costs one account-v1 request per
// load. The PUUID of an account never changes, so the mapping is cached in
// Redis with a fixed TTL and later loads of the same player skip the lookup.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.CacheKey{Route: "europe", Name: "Faker", Tag: "KR1"}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// resolve through the API, then
//		err = manager.Set(ctx, key, puuid)
//	}
//
// # Metrics
//
//   - lol_cache_hits_total
//   - lol_cache_misses_total
//   - lol_cache_errors_total{operation}
package cache
