package interfaces

import (
	"context"

	"superstory-server/shared/models"
)

// SessionClient получает запись о звонке у голосового сервиса.
// nil без ошибки означает, что сервис ответил пустым телом (записи пока нет).
type SessionClient interface {
	GetCall(ctx context.Context, callID string) (*models.SessionRecord, error)
}
