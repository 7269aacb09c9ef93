// Package httpapi wires the REST surface and the websocket endpoint.
package httpapi

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/adapters/ws"
	"github.com/kodesesh/backend/internal/config"
	"github.com/kodesesh/backend/internal/core"
)

// ClientTokenMiddleware hands every browser an opaque identity cookie. This
// is the "authenticated identity" the session layer consumes; issuing real
// credentials is someone else's job.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, gw *ws.Gateway, store core.SessionStore, exec core.Executor) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("KodeseshSessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "httpapi").Str("static", cfg.StaticPath).Msg("router setup")

	h := &SessionHandlers{Store: store, Registry: gw.Registry, AppURL: cfg.AppURL}
	e := &ExecuteHandler{Executor: exec}

	api := r.Group("/api")
	api.POST("/sessions", h.Create)
	api.POST("/sessions/join", h.Join)
	api.GET("/sessions/:session_id", h.Get)
	api.POST("/sessions/leave", h.Leave)
	api.DELETE("/sessions/:session_id", h.Delete)

	api.POST("/execute", e.Execute)

	api.GET("/ws", func(c *gin.Context) {
		gw.HandleWS(ctx, c)
	})

	return r
}
