package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roomtrack"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultPort = "8080"

	DefaultPersonDirectoryURL = "http://localhost:8081"
	DefaultRoomDirectoryURL   = "http://localhost:8082"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 64 * 1024 // 64KB, admission payloads are tiny

	DefaultIdempotencyTTL = 1 * time.Hour

	DefaultLockTTL          = 10 * time.Second
	DefaultLockMaxRetries   = 5
	DefaultLockRetryBackoff = 50 * time.Millisecond

	DefaultEventTopic     = "attendance.presence"
	DefaultEventQueueSize = 256

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
