// Package store is the shared persistence layer. Independent role
// processes (customer, kitchen, waiter) read and write the same keys with
// no locking; the only cross-writer safety is the merge rule in PutActive.
package store

import "context"

// KV is the narrow contract every backend satisfies. Values are JSON
// text; readers treat absent or unparsable values as empty.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
