package service

import (
	"context"
	"time"

	"superstory-server/internal/session"
	"superstory-server/shared/constants"
	"superstory-server/shared/messaging"

	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Broadcaster рассылает live-обновления клиентам.
type Broadcaster interface {
	Broadcast(ctx context.Context, messageType, topic string, payload any) error
}

// SessionDispatcher разбирает канал переходов сессий: каждый переход уходит в websocket,
// переход в ended дополнительно публикуется в очередь.
type SessionDispatcher struct {
	broadcaster Broadcaster
	publisher   messaging.SessionEventPublisher
	topicFor    func(callID string) string
	logger      *zap.Logger
}

// NewSessionDispatcher создает диспетчер. topicFor строит имя темы по callId.
func NewSessionDispatcher(broadcaster Broadcaster, publisher messaging.SessionEventPublisher, topicFor func(string) string, logger *zap.Logger) *SessionDispatcher {
	return &SessionDispatcher{
		broadcaster: broadcaster,
		publisher:   publisher,
		topicFor:    topicFor,
		logger:      logger.Named("SessionDispatcher"),
	}
}

// Run работает до отмены ctx или закрытия канала.
func (d *SessionDispatcher) Run(ctx context.Context, transitions <-chan session.Transition) {
	d.logger.Info("Session dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Session dispatcher stopped")
			return
		case t, ok := <-transitions:
			if !ok {
				d.logger.Info("Transition channel closed, dispatcher stopped")
				return
			}
			d.Handle(ctx, t)
		}
	}
}

// Handle обрабатывает один переход. Ошибки логируются, обработка следующих переходов продолжается.
func (d *SessionDispatcher) Handle(ctx context.Context, t session.Transition) {
	log := d.logger.With(zap.String("callID", t.CallID), zap.String("to", string(t.To)))

	if d.broadcaster != nil {
		if err := d.broadcaster.Broadcast(ctx, constants.WSEventSessionTransition, d.topicFor(t.CallID), t); err != nil {
			log.Warn("Failed to broadcast transition", zap.Error(err))
		}
	}

	if t.To != session.StateEnded {
		return
	}

	endedAt := t.At
	if t.Session.EndedAt != nil {
		endedAt = *t.Session.EndedAt
	}
	payload := messaging.SessionEndedPayload{
		CallID:  t.CallID,
		StoryID: t.Session.StoryID,
		UserID:  t.Session.UserID,
		EndedAt: endedAt,
		Reason:  t.Session.EndedReason,
	}

	// Публикация не должна теряться из-за отмены ctx при остановке сервиса.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := d.publisher.PublishSessionEnded(pubCtx, payload); err != nil {
		log.Error("Failed to publish session ended event", zap.Error(err))
		return
	}
	log.Info("Session ended event dispatched")
}
