package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/Dosada05/tournify/handlers"
	"github.com/Dosada05/tournify/middleware"
)

type Options struct {
	AllowedOrigins []string
	// JWTSecret включает проверку токена организатора на изменяющих запросах.
	JWTSecret      string
	RequestTimeout time.Duration
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(handlers.NotFoundHandler)
	router.Get("/", handlers.WelcomeHandler)
	router.Get("/events", handlers.EventsHandler)
	router.Get("/healthz", Health)

	// WebSocket живёт дольше любого таймаута запроса.
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	requireOrganizer := middleware.RequireOrganizer(opts.JWTSecret)

	router.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", tournamentHandler.ListHandler)
			r.With(requireOrganizer).Post("/", tournamentHandler.CreateHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByIDHandler)
				r.Get("/matches", tournamentHandler.ListMatchesHandler)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.With(requireOrganizer).Patch("/{matchID}/winner", matchHandler.UpdateWinnerHandler)
		})
	})
}

// Health is a liveness probe for deployments.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
