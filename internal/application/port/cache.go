package port

import "context"

// Cache хранит ответы источника метрик в виде JSON.
// Get returns an error on a miss as well; callers treat any error as a miss.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
}
