// Package memkv is a small thread-safe in-memory key/value store with per-key
// TTL. Keys are spread over shards guarded by RW mutexes; expired entries are
// hidden on read and swept by a background goroutine.
package memkv
