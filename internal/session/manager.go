package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"superstory-server/internal/metrics"

	"go.uber.org/zap"
)

var ErrManagerClosed = errors.New("session manager closed")

// Transition публикуется при каждой смене состояния.
type Transition struct {
	// Seq монотонный номер перехода в пределах Manager, задает порядок публикации.
	Seq     uint64    `json:"seq"`
	CallID  string    `json:"call_id"`
	From    State     `json:"from"`
	To      State     `json:"to"`
	Event   EventType `json:"event"`
	Session Session   `json:"session"`
	At      time.Time `json:"at"`
}

// Manager хранит сессии по callId и публикует переходы в канал.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	seq      uint64

	// publishMu берется под mu и держится до отправки в канал,
	// поэтому переходы попадают в канал в порядке применения.
	publishMu sync.Mutex

	transitions chan Transition
	done        chan struct{}
	closeOnce   sync.Once

	now    func() time.Time
	logger *zap.Logger
}

// NewManager создает менеджер. buffer - емкость канала переходов.
func NewManager(buffer int, logger *zap.Logger) *Manager {
	if buffer < 0 {
		buffer = 0
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		transitions: make(chan Transition, buffer),
		done:        make(chan struct{}),
		now:         time.Now,
		logger:      logger.Named("SessionManager"),
	}
}

// Transitions канал переходов. Читать должен ровно один потребитель.
func (m *Manager) Transitions() <-chan Transition {
	return m.transitions
}

// Apply применяет событие к сессии callID, создавая ее в состоянии idle при первом событии.
// Для переходов возвращает Transition, уже отправленный в канал.
func (m *Manager) Apply(ctx context.Context, callID string, e Event, meta Metadata) (Session, *Transition, error) {
	select {
	case <-m.done:
		return Session{}, nil, ErrManagerClosed
	default:
	}

	now := m.now().UTC()
	if !e.At.IsZero() {
		now = e.At.UTC()
	}

	m.mu.Lock()
	s, ok := m.sessions[callID]
	if !ok {
		s = newSession(callID, now)
		m.sessions[callID] = s
	}
	meta.applyTo(s)
	from, changed, err := s.apply(e, now)
	snap := s.snapshot()
	var seq uint64
	if err == nil && changed {
		m.seq++
		seq = m.seq
		m.publishMu.Lock()
		defer m.publishMu.Unlock()
	}
	m.mu.Unlock()

	log := m.logger.With(zap.String("callID", callID), zap.String("event", string(e.Type)))
	if err != nil {
		log.Warn("Session event rejected", zap.String("state", string(from)), zap.Error(err))
		return snap, nil, err
	}
	if !changed {
		return snap, nil, nil
	}

	t := Transition{Seq: seq, CallID: callID, From: from, To: snap.State, Event: e.Type, Session: snap, At: now}
	metrics.SessionTransitionsTotal.WithLabelValues(string(from), string(snap.State)).Inc()
	log.Info("Session state changed", zap.String("from", string(from)), zap.String("to", string(snap.State)))

	select {
	case m.transitions <- t:
	case <-m.done:
		return snap, &t, ErrManagerClosed
	case <-ctx.Done():
		log.Warn("Transition not published, context done", zap.Error(ctx.Err()))
		return snap, &t, ctx.Err()
	}
	return snap, &t, nil
}

// Get возвращает копию сессии.
func (m *Manager) Get(callID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callID]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// Prune удаляет завершенные сессии, закончившиеся раньше чем retention назад. Возвращает число удаленных.
func (m *Manager) Prune(retention time.Duration) int {
	cutoff := m.now().UTC().Add(-retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.State == StateEnded && s.EndedAt != nil && s.EndedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor периодически вызывает Prune до отмены ctx.
func (m *Manager) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			if n := m.Prune(retention); n > 0 {
				m.logger.Debug("Ended sessions pruned", zap.Int("count", n))
			}
		}
	}
}

// Close прекращает прием событий. Канал переходов не закрывается, потребитель завершается по своему ctx.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Metadata привязка сессии к истории и пользователю. Пустые поля игнорируются, уже заданные не перезаписываются.
type Metadata struct {
	StoryID *string
	UserID  *string
}

func (md Metadata) applyTo(s *Session) {
	if s.StoryID == nil && md.StoryID != nil && *md.StoryID != "" {
		v := *md.StoryID
		s.StoryID = &v
	}
	if s.UserID == nil && md.UserID != nil && *md.UserID != "" {
		v := *md.UserID
		s.UserID = &v
	}
}
