package interfaces

import (
	"context"
	"time"
)

// CallLockRepository гарантирует, что пайплайн по одному звонку запускается один раз.
type CallLockRepository interface {
	// Acquire возвращает true, если блокировка получена этим вызовом.
	Acquire(ctx context.Context, callID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, callID string) error
}
