package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/config"
)

// multipart framing on top of the proof itself
const formOverheadBytes = 64 * 1024

func New(cfg config.Config, svc attendance.Service, log zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, svc attendance.Service, log zerolog.Logger) *gin.Engine {
	log = log.With().Str("component", "http").Logger()

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = attendance.DefaultMaxUploadBytes
	}

	r := gin.New()
	r.MaxMultipartMemory = maxUpload + formOverheadBytes
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logging(log))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	h := &handler{svc: svc, maxUpload: maxUpload, log: log}

	r.GET("/healthz", h.health)

	api := r.Group("/api")
	api.GET("/participants", h.search)
	api.POST("/participants", h.register)
	api.POST("/participants/confirm", h.confirm)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	})
}
