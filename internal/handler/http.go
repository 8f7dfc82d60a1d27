package handler

import (
	"net/http"
	"time"

	"superstory-server/internal/service"
	"superstory-server/internal/session"
	"superstory-server/shared/interfaces"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps зависимости HTTP слоя.
type Deps struct {
	Chat     service.ChatService
	Pipeline service.PipelineRunner
	Stories  interfaces.StoryRepository
	Locks    interfaces.CallLockRepository
	LockTTL  time.Duration
	Sessions *session.Manager
	// WebSocket обработчик подключений live-обновлений, может быть nil.
	WebSocket http.Handler
	Logger    *zap.Logger
}

// Handler HTTP API superstory-server.
type Handler struct {
	chat     service.ChatService
	pipeline service.PipelineRunner
	stories  interfaces.StoryRepository
	locks    interfaces.CallLockRepository
	lockTTL  time.Duration
	sessions *session.Manager
	ws       http.Handler
	logger   *zap.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		chat:     d.Chat,
		pipeline: d.Pipeline,
		stories:  d.Stories,
		locks:    d.Locks,
		lockTTL:  d.LockTTL,
		sessions: d.Sessions,
		ws:       d.WebSocket,
		logger:   d.Logger.Named("HTTPHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. chatMiddleware (rate limit) применяется только к /api/chat.
func (h *Handler) RegisterRoutes(router *gin.Engine, chatMiddleware ...gin.HandlerFunc) {
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	router.GET("/health", h.health)
	router.HEAD("/health", h.health)

	api := router.Group("/api")
	{
		api.POST("/chat", append(chatMiddleware, h.chatRelay)...)

		api.POST("/vapi/webhook", h.vapiWebhook)

		api.POST("/sessions/:callId/events", h.sessionEvent)
		api.GET("/sessions/:callId", h.getSession)

		api.POST("/calls/:callId/story", h.runPipeline)
		api.GET("/stories/:id", h.getStory)
	}

	if h.ws != nil {
		router.GET("/ws", gin.WrapH(h.ws))
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
