package repository

import "context"

// LocalStore is durable key/value storage private to this install.
type LocalStore interface {
	// Get reports ok=false when the key has never been written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
