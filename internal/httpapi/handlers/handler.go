package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reviselabs/revise/internal/ai"
	"github.com/reviselabs/revise/internal/chat"
	"github.com/reviselabs/revise/internal/config"
	"github.com/reviselabs/revise/internal/httpapi/middleware"
	"github.com/reviselabs/revise/internal/shortener"
	"github.com/reviselabs/revise/internal/store/rabbitmq"
	"github.com/reviselabs/revise/internal/store/redisstore"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Redis    *redisstore.Store
	Rabbit   *rabbitmq.Publisher
	ChatSvc  *chat.Service
	ShortSvc *shortener.Service
}

// NewHandler wires the long-lived service handles. rabbit may be nil; click
// analytics then degrades to counting nothing.
func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit *rabbitmq.Publisher) *Handler {
	reg := ai.NewRegistry()
	reg.Register("gemini", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel), nil
	})
	reg.Register("openai", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	})

	provider, err := reg.Get(context.Background(), cfg.AIProvider)
	if err != nil {
		panic(fmt.Sprintf("unsupported AI_PROVIDER=%q", cfg.AIProvider))
	}

	chatSvc := chat.NewService(chat.NewRepo(db), provider, cfg.ChatWindowSize, cfg.LLMTimeout)
	shortSvc := shortener.NewService(shortener.NewRepo(db))

	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Redis:    rds,
		Rabbit:   rabbit,
		ChatSvc:  chatSvc,
		ShortSvc: shortSvc,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}

func principalFromContext(c *gin.Context) (uint64, string, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, "", false
	}
	id, ok := v.(uint64)
	if !ok {
		return 0, "", false
	}
	name, _ := c.Get(middleware.UserNameKey)
	n, _ := name.(string)
	return id, n, true
}
