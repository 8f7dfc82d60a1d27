package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SessionEventPublisher отправляет события завершения сессий.
type SessionEventPublisher interface {
	PublishSessionEnded(ctx context.Context, payload SessionEndedPayload) error
}

type rabbitMQSessionPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQSessionPublisher объявляет durable очередь и возвращает издателя.
// Канал принадлежит вызывающему и закрывается им же.
func NewRabbitMQSessionPublisher(ch *amqp.Channel, queueName string, logger *zap.Logger) (SessionEventPublisher, error) {
	if ch == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}
	if queueName == "" {
		queueName = SessionEndedQueue
	}

	_, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось объявить очередь '%s': %w", queueName, err)
	}

	log := logger.Named("SessionPublisher")
	log.Info("Session events queue declared", zap.String("queue", queueName))

	return &rabbitMQSessionPublisher{channel: ch, queueName: queueName, logger: log}, nil
}

func (p *rabbitMQSessionPublisher) PublishSessionEnded(ctx context.Context, payload SessionEndedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации SessionEndedPayload для callID %s: %w", payload.CallID, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        appID,
			MessageId:    payload.CallID + "-ended",
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish session ended event", zap.String("callID", payload.CallID), zap.Error(err))
		return fmt.Errorf("ошибка публикации события для callID %s: %w", payload.CallID, err)
	}

	p.logger.Info("Session ended event published", zap.String("callID", payload.CallID), zap.String("queue", p.queueName))
	return nil
}
