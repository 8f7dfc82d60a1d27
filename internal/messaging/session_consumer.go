package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"superstory-server/internal/service"
	"superstory-server/shared/interfaces"
	sharedMessaging "superstory-server/shared/messaging"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// outcome решение по сообщению.
type outcome int

const (
	outcomeAck outcome = iota
	outcomeNack
)

const releaseTimeout = 5 * time.Second

// SessionEndedConsumer слушает очередь завершенных сессий и запускает конвейер извлечения.
// На один callId конвейер запускается один раз (блокировка в Redis).
type SessionEndedConsumer struct {
	conn            *amqp091.Connection
	ch              *amqp091.Channel
	pipeline        service.PipelineRunner
	locks           interfaces.CallLockRepository
	lockTTL         time.Duration
	pipelineTimeout time.Duration
	logger          *zap.Logger
	queueName       string
	consumerTag     string
	done            chan error
}

// ConsumerConfig параметры консьюмера.
type ConsumerConfig struct {
	QueueName       string
	LockTTL         time.Duration
	PipelineTimeout time.Duration
}

// NewSessionEndedConsumer создает консьюмера. conn может быть nil только в тестах, где не вызывается StartConsuming.
func NewSessionEndedConsumer(
	conn *amqp091.Connection,
	pipeline service.PipelineRunner,
	locks interfaces.CallLockRepository,
	cfg ConsumerConfig,
	logger *zap.Logger,
) *SessionEndedConsumer {
	if cfg.QueueName == "" {
		cfg.QueueName = sharedMessaging.SessionEndedQueue
	}
	if cfg.PipelineTimeout <= 0 {
		cfg.PipelineTimeout = 5 * time.Minute
	}
	consumerTag := fmt.Sprintf("session_ended_consumer_%d", time.Now().UnixNano())
	return &SessionEndedConsumer{
		conn:            conn,
		pipeline:        pipeline,
		locks:           locks,
		lockTTL:         cfg.LockTTL,
		pipelineTimeout: cfg.PipelineTimeout,
		logger:          logger.Named("SessionEndedConsumer").With(zap.String("consumerTag", consumerTag), zap.String("queue", cfg.QueueName)),
		queueName:       cfg.QueueName,
		consumerTag:     consumerTag,
		done:            make(chan error, 1),
	}
}

func (c *SessionEndedConsumer) setupChannelAndQueue() error {
	if c.conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}
	var err error
	c.ch, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = c.ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare queue '%s': %w", c.queueName, err)
	}

	// Один звонок за раз: конвейер долго опрашивает Vapi.
	if err := c.ch.Qos(1, 0, false); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	return nil
}

// StartConsuming блокирует до Stop или закрытия канала.
func (c *SessionEndedConsumer) StartConsuming() error {
	if err := c.setupChannelAndQueue(); err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(
		c.queueName,
		c.consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go c.handleDeliveries(deliveries)

	notifyClose := c.ch.NotifyClose(make(chan *amqp091.Error, 1))
	go func() {
		if err, ok := <-notifyClose; ok && err != nil {
			c.logger.Error("RabbitMQ channel closed unexpectedly", zap.Error(err))
			c.signal(err)
		}
	}()

	c.logger.Info("Consumer запущен и ожидает сообщений")
	return <-c.done
}

func (c *SessionEndedConsumer) handleDeliveries(deliveries <-chan amqp091.Delivery) {
	for d := range deliveries {
		log := c.logger.With(zap.Uint64("deliveryTag", d.DeliveryTag))
		switch c.process(context.Background(), d.Body) {
		case outcomeAck:
			if err := d.Ack(false); err != nil {
				log.Error("Ошибка при подтверждении (Ack) сообщения", zap.Error(err))
			}
		case outcomeNack:
			if err := d.Nack(false, false); err != nil {
				log.Error("Ошибка при отклонении (Nack) сообщения", zap.Error(err))
			}
		}
	}
	c.logger.Info("Канал deliveries закрыт, обработка сообщений завершена")
	c.signal(nil)
}

// process обрабатывает тело сообщения и решает, подтверждать ли его.
// ctx не должен отменяться при остановке сервиса, иначе опрос прервется посередине.
func (c *SessionEndedConsumer) process(ctx context.Context, body []byte) outcome {
	var payload sharedMessaging.SessionEndedPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.CallID == "" {
		c.logger.Warn("Invalid session ended payload, dropping", zap.Error(err), zap.ByteString("body", body))
		return outcomeNack
	}
	log := c.logger.With(zap.String("callID", payload.CallID))

	acquired, err := c.locks.Acquire(ctx, payload.CallID, c.lockTTL)
	if err != nil {
		log.Error("Failed to acquire call lock", zap.Error(err))
		return outcomeNack
	}
	if !acquired {
		log.Info("Call already processed or in progress, skipping")
		return outcomeAck
	}

	runCtx, cancel := context.WithTimeout(ctx, c.pipelineTimeout)
	defer cancel()

	_, err = c.pipeline.Run(runCtx, payload.CallID, c.runOptions(log, payload))
	if err == nil {
		return outcomeAck
	}

	var pErr *service.PipelineError
	if errors.As(err, &pErr) && pErr.Stage == service.StageExtract {
		if !pErr.Retryable() {
			// Анализ досчитан, но персонажа или сюжета в нем нет. Блокировку оставляем.
			log.Warn("Call has no usable story data", zap.String("reason", pErr.Reason()))
			return outcomeAck
		}
		// Анализ еще не готов: освобождаем callId для ручного запуска.
		log.Warn("Call ended before structured data was ready, releasing lock", zap.String("reason", pErr.Reason()))
		c.releaseLock(ctx, log, payload.CallID)
		return outcomeAck
	}

	log.Error("Pipeline failed, releasing lock for a later retry", zap.Error(err))
	c.releaseLock(ctx, log, payload.CallID)
	return outcomeNack
}

func (c *SessionEndedConsumer) releaseLock(ctx context.Context, log *zap.Logger, callID string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := c.locks.Release(releaseCtx, callID); err != nil {
		log.Error("Failed to release call lock", zap.Error(err))
	}
}

func (c *SessionEndedConsumer) runOptions(log *zap.Logger, payload sharedMessaging.SessionEndedPayload) service.RunOptions {
	var opts service.RunOptions
	if payload.StoryID != nil && *payload.StoryID != "" {
		if id, err := uuid.Parse(*payload.StoryID); err == nil {
			opts.StoryID = &id
		} else {
			log.Warn("Invalid story_id in payload, a new story will be created", zap.String("storyID", *payload.StoryID))
		}
	}
	if payload.UserID != nil && *payload.UserID != "" {
		if id, err := uuid.Parse(*payload.UserID); err == nil {
			opts.UserID = &id
		} else {
			log.Warn("Invalid user_id in payload, default user will be used", zap.String("userID", *payload.UserID))
		}
	}
	return opts
}

func (c *SessionEndedConsumer) signal(err error) {
	select {
	case c.done <- err:
	default:
	}
}

// Stop отменяет подписку и закрывает канал.
func (c *SessionEndedConsumer) Stop() error {
	if c.ch == nil {
		return nil
	}
	c.logger.Info("Остановка SessionEndedConsumer...")
	if err := c.ch.Cancel(c.consumerTag, false); err != nil {
		c.logger.Error("Ошибка при отмене consumer'а", zap.Error(err))
	}
	if err := c.ch.Close(); err != nil {
		c.logger.Error("Ошибка при закрытии канала RabbitMQ", zap.Error(err))
	}
	c.signal(nil)
	return nil
}
