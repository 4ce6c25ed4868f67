// Package config loads admin configuration from defaults, an optional YAML
// file and ADMIN_* environment variables, in that order of precedence (the
// environment wins).
//
// # Configuration Sources
//
// ADMIN_CONFIG_FILE names a YAML document whose keys mirror the struct tags:
//
//	server:
//	  port: "8080"
//	  health_port: "9090"
//	storage:
//	  driver: postgres
//	  database_url: postgres://localhost/admin?sslmode=disable
//	  redis_url: redis://localhost:6379/0
//	cache:
//	  driver: redis
//	  ttl: 5m
//	  broadcast: true
//
// Common environment variables:
//
//	ADMIN_DB_DRIVER="sqlite3"             # postgres, sqlite3
//	ADMIN_DB_URL="file:admin.db?_foreign_keys=on"
//	ADMIN_DB_REPLICA_URLS="postgres://r1/admin,postgres://r2/admin"
//	ADMIN_REDIS_URL="redis://localhost:6379"
//	ADMIN_CACHE_DRIVER="memory"           # memory, redis
//	ADMIN_CACHE_TTL="5m"
//	ADMIN_CACHE_BROADCAST="false"
//	ADMIN_SESSION_TTL="24h"
//	ADMIN_LOGIN_MAX_ATTEMPTS="5"
//	ADMIN_LOGIN_WINDOW="1m"
//	ADMIN_ACTIVITY_RETENTION_DAYS="365"
//	ADMIN_ACTIVITY_ARCHIVE="false"
//	ADMIN_S3_BUCKET="admin-archive"
//	ADMIN_LOG_LEVEL="info"
//	ADMIN_OTEL_ENABLED="false"
//
// # Validation
//
// LoadConfig validates the merged result and fails fast on inconsistent
// settings, such as a redis cache driver without a Redis URL or activity
// archiving without a bucket.
package config
