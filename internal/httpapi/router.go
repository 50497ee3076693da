package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/reviselabs/revise/internal/common"
	"github.com/reviselabs/revise/internal/config"
	"github.com/reviselabs/revise/internal/httpapi/handlers"
	"github.com/reviselabs/revise/internal/httpapi/middleware"
	"github.com/reviselabs/revise/internal/store/rabbitmq"
	"github.com/reviselabs/revise/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	// The frontend sends the auth cookie cross-origin.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, rds, rabbit)

	r.GET("/ping", h.Ping)

	// public
	r.POST("/api/auth/signup", h.Signup)
	r.POST("/api/auth/login", h.Login)
	r.GET("/u/:code", h.Redirect)

	authGroup := r.Group("/api")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret, rds))
	authGroup.POST("/auth/logout", h.Logout)
	authGroup.GET("/me", h.Me)

	// chat (JWT required)
	authGroup.POST("/session/start", h.StartChatSession)
	authGroup.POST("/chat/:session_id", h.PostChatMessage)
	authGroup.GET("/chat/:session_id/context", h.GetChatContext)

	// url shortener (JWT required)
	authGroup.POST("/urls", h.CreateShortURL)
	authGroup.GET("/urls", h.ListUserURLs)
	authGroup.DELETE("/urls/:id", h.DeleteShortURL)

	return r
}
