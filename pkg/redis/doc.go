// Package redis bootstraps the Redis connection used by the device token
// registry.
//
// Connect parses the connection URL, retries until the server answers a ping
// or the attempts are exhausted, and returns a ready *redis.Client. The
// Healthcheck helper adapts the client to the func(context.Context) error
// shape health endpoints expect.
package redis
