package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/studyai/studyai-go/internal/config"
	"github.com/studyai/studyai-go/internal/middleware"
	"github.com/studyai/studyai-go/internal/service"
)

// RouterDeps holds everything the HTTP surface needs.
type RouterDeps struct {
	Auth    *service.AuthService
	Content *service.ContentService
	Chat    *service.ChatService
	DB      Pinger

	CORSAllowedOrigins []string
	AuthRateLimit      config.RateLimit
	AIRateLimit        config.RateLimit
}

// NewRouter builds the chi router with all routes and middleware. Background
// work started by the middleware stops when ctx is cancelled.
//
// Rate limits key on the TCP peer address; forwarding headers are not trusted.
func NewRouter(ctx context.Context, deps RouterDeps) http.Handler {
	authHandler := NewAuthHandler(deps.Auth)
	aiHandler := NewAIHandler(deps.Content, deps.Chat)
	healthHandler := NewHealthHandler(deps.DB)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", HandleRoot)
	r.Get("/health", healthHandler.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, deps.AuthRateLimit.RPS, deps.AuthRateLimit.Burst))
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.Auth))
		r.Get("/me", authHandler.HandleMe)
		r.Post("/logout", authHandler.HandleLogout)
	})

	r.Route("/ai", func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.Auth))
		r.Use(middleware.RateLimit(ctx, deps.AIRateLimit.RPS, deps.AIRateLimit.Burst))
		r.Post("/generate-content", aiHandler.HandleGenerateContent)
		r.Post("/chat", aiHandler.HandleChat)
	})

	return r
}
