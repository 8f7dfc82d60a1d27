package messaging

const (
	// SessionEndedQueue очередь событий завершения голосовой сессии.
	SessionEndedQueue = "session_ended_events"

	appID = "superstory-server"
)
