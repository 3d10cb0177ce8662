package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/liga-hub/tabellen-service/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	calculationHandler *handlers.CalculationHandler,
	tableHandler *handlers.TableHandler,
	hookHandler *handlers.HookHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/calculations", func(r chi.Router) {
			r.Post("/", calculationHandler.Submit)
			r.Get("/status", calculationHandler.QueueStatus)
			r.Get("/jobs/{jobID}", calculationHandler.JobResult)
			r.Post("/pause", calculationHandler.Pause)
			r.Post("/resume", calculationHandler.Resume)
		})

		r.Get("/leagues/{leagueID}/seasons/{seasonID}/table", tableHandler.GetTable)

		r.Route("/hooks", func(r chi.Router) {
			r.Post("/match-created", hookHandler.MatchCreated)
			r.Post("/match-updated", hookHandler.MatchUpdated)
			r.Post("/match-deleted", hookHandler.MatchDeleted)
		})
	})

	router.Get("/ws/leagues/{leagueID}", webSocketHandler.ServeWs)
}
