package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvPersonDirectoryURL = "PERSON_DIRECTORY_URL"
	EnvRoomDirectoryURL   = "ROOM_DIRECTORY_URL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"

	EnvLockTTL          = "LOCK_TTL"
	EnvLockMaxRetries   = "LOCK_MAX_RETRIES"
	EnvLockRetryBackoff = "LOCK_RETRY_BACKOFF"

	EnvEventTopic     = "EVENT_TOPIC"
	EnvEventQueueSize = "EVENT_QUEUE_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
