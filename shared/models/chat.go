package models

// Роли сообщений чата.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage - одно сообщение диалога для chat-completion.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
