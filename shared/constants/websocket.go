package constants

// Типы сообщений, рассылаемых клиентам по websocket.
const (
	WSEventSessionTransition = "session_transition"
)
