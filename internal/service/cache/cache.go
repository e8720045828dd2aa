package cache

import "time"

// BytesCache stores raw response bytes with a TTL. The signal handlers use
// it to short-circuit repeated reads of the same asset.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
