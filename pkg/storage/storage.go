package storage

import "context"

// Storage is the generic keyed store backing per-role state containers
// (facility table, share buffers). Each role owns its own instances; there
// is no shared store across roles.
type Storage interface {
	Create(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) (any, error)
	Update(ctx context.Context, key string, value any) error
	List(ctx context.Context, offset, limit uint64) ([]any, uint64, error)
	Delete(ctx context.Context, key string) error
}
