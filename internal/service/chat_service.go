package service

import (
	"context"
	"fmt"

	"superstory-server/shared/models"

	"go.uber.org/zap"
)

// ChatService ретранслирует историю сообщений провайдеру chat-completion.
type ChatService interface {
	Reply(ctx context.Context, messages []models.ChatMessage) (string, error)
}

type chatService struct {
	ai     AIClient
	logger *zap.Logger
}

// NewChatService создает сервис чата.
func NewChatService(ai AIClient, logger *zap.Logger) ChatService {
	return &chatService{ai: ai, logger: logger.Named("ChatService")}
}

// Reply отправляет сообщения без изменений и возвращает содержимое первого ответа.
func (s *chatService) Reply(ctx context.Context, messages []models.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: messages are empty", models.ErrBadRequest)
	}
	// Роли и содержимое не проверяются: история уходит провайдеру как есть.

	content, usage, err := s.ai.Complete(ctx, messages)
	if err != nil {
		s.logger.Error("Chat completion failed", zap.Int("messages", len(messages)), zap.Error(err))
		return "", err
	}

	s.logger.Info("Chat completion done",
		zap.Int("messages", len(messages)),
		zap.Int("totalTokens", usage.TotalTokens),
	)
	return content, nil
}
