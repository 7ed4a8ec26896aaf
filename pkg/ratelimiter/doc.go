// Package ratelimiter throttles expensive billing endpoints with a token
// bucket. Each checkout creates a processor charge, so requests are keyed
// by user (or client address for anonymous callers) and refused with 429
// once the bucket is empty.
//
// Buckets live in Redis when it is configured, so every API instance
// shares one budget per user, and in process memory otherwise.
package ratelimiter
