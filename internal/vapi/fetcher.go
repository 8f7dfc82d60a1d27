package vapi

import (
	"context"
	"fmt"
	"math"
	"time"

	"superstory-server/internal/metrics"
	"superstory-server/shared/interfaces"
	"superstory-server/shared/models"

	"go.uber.org/zap"
)

const backoffFactor = 1.5

// FetcherConfig параметры опроса.
type FetcherConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	// WaitAfterEnd - продолжать опрос, даже если звонок уже завершен, а structuredData пуст.
	WaitAfterEnd bool
}

// SleepFunc ждет d или отмены ctx.
type SleepFunc func(ctx context.Context, d time.Duration) error

// FetcherOption настраивает Fetcher.
type FetcherOption func(*Fetcher)

// WithSleepFunc подменяет ожидание между попытками (используется в тестах).
func WithSleepFunc(fn SleepFunc) FetcherOption {
	return func(f *Fetcher) { f.sleep = fn }
}

// Fetcher опрашивает статус звонка, пока голосовой сервис не досчитает structuredData.
type Fetcher struct {
	client interfaces.SessionClient
	cfg    FetcherConfig
	sleep  SleepFunc
	logger *zap.Logger
}

// NewFetcher создает Fetcher. MaxAttempts меньше 1 считается равным 1.
func NewFetcher(client interfaces.SessionClient, cfg FetcherConfig, logger *zap.Logger, opts ...FetcherOption) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	f := &Fetcher{
		client: client,
		cfg:    cfg,
		sleep:  sleepContext,
		logger: logger.Named("VapiFetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BackoffDelay задержка перед попыткой с индексом attempt (с нуля): initial * 1.5^attempt.
func BackoffDelay(initial time.Duration, attempt int) time.Duration {
	return time.Duration(float64(initial) * math.Pow(backoffFactor, float64(attempt)))
}

// Budget верхняя оценка длительности Fetch: сумма всех задержек плюс
// requestTimeout на каждую попытку. Контекст вызывающего должен жить не меньше.
func (c FetcherConfig) Budget(requestTimeout time.Duration) time.Duration {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var total time.Duration
	for i := 0; i < attempts; i++ {
		total += BackoffDelay(c.InitialDelay, i) + requestTimeout
	}
	return total
}

// Fetch делает не более MaxAttempts запросов. Перед каждой попыткой, включая первую, ждет BackoffDelay.
//
// Возвращает запись сразу, как только structuredData не пуст, либо если звонок завершен без данных.
// Когда попытки исчерпаны, возвращает последнюю полученную запись без ошибки.
// Сетевая ошибка или не-2xx на последней попытке возвращается вызывающему.
// Если сервис ни разу не вернул запись, возвращается models.ErrSessionNotFound.
func (f *Fetcher) Fetch(ctx context.Context, callID string) (*models.SessionRecord, error) {
	log := f.logger.With(zap.String("callID", callID))

	var last *models.SessionRecord
	attempts := 0
	defer func() { metrics.FetchAttemptsPerRun.Observe(float64(attempts)) }()

	for i := 0; i < f.cfg.MaxAttempts; i++ {
		delay := BackoffDelay(f.cfg.InitialDelay, i)
		if err := f.sleep(ctx, delay); err != nil {
			log.Warn("Fetch interrupted", zap.Int("attempt", i+1), zap.Error(err))
			return nil, fmt.Errorf("fetch call %s interrupted: %w", callID, err)
		}

		attempts++
		isLast := i == f.cfg.MaxAttempts-1
		attemptLog := log.With(zap.Int("attempt", i+1), zap.Int("maxAttempts", f.cfg.MaxAttempts), zap.Duration("delay", delay))

		record, err := f.client.GetCall(ctx, callID)
		if err != nil {
			metrics.FetchAttemptsTotal.WithLabelValues("error").Inc()
			if isLast {
				attemptLog.Error("Call status request failed on final attempt", zap.Error(err))
				return nil, fmt.Errorf("fetch call %s: %w", callID, err)
			}
			attemptLog.Warn("Call status request failed, will retry", zap.Error(err))
			continue
		}

		if record == nil {
			metrics.FetchAttemptsTotal.WithLabelValues("null").Inc()
			attemptLog.Warn("Call status response is empty")
			continue
		}
		last = record

		if record.HasStructuredData() {
			metrics.FetchAttemptsTotal.WithLabelValues("ready").Inc()
			attemptLog.Info("Structured data received")
			return record, nil
		}

		if record.IsFinalized() && !f.cfg.WaitAfterEnd {
			metrics.FetchAttemptsTotal.WithLabelValues("finalized").Inc()
			attemptLog.Info("Call ended without structured data, stop polling",
				zap.String("endedReason", record.EndedReason))
			return record, nil
		}

		metrics.FetchAttemptsTotal.WithLabelValues("pending").Inc()
		attemptLog.Debug("Structured data not ready yet")
	}

	if last != nil {
		log.Warn("Attempts exhausted, returning last record without structured data")
		return last, nil
	}

	log.Error("Attempts exhausted, call record never returned")
	return nil, fmt.Errorf("fetch call %s: %w", callID, models.ErrSessionNotFound)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
