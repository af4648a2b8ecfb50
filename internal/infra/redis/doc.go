// Package redis provides Redis integration for the API.
//
// # Overview
//
// This package provides three main components:
//   - Client: Connection management with TLS, pooling, and retry logic
//   - Cache[T]: Type-safe generic caching with TTL support
//   - UploadChecksumCache: Duplicate-upload detection over a sliding window
//
// # Quick Start
//
// Initialize the Redis client:
//
//	client, err := redis.New(&cfg.Redis, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Using the Generic Cache
//
// Create a type-safe cache for any struct:
//
//	statsCache, err := redis.NewCache[handler.StatsResponse](client, "stats", 5*time.Minute)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	stats, err := statsCache.GetOrSetFallback(ctx, "overview", loadStats)
//
// # Duplicate Upload Detection
//
// The checksum cache remembers SHA-256 sums of processed uploads so a
// re-submitted file within the window gets flagged on its ingestion log:
//
//	checksums, err := redis.NewUploadChecksumCache(client)
//	seen, err := checksums.Seen(ctx, checksum)
//	err = checksums.Remember(ctx, checksum, 24*time.Hour)
//
// All operations degrade gracefully: cache trouble is logged and never
// blocks an upload.
package redis
