package handlers

import (
	"net/http"

	"reunion-countdown/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every route of the widget backend
func NewRouter(countdown *CountdownHandler, puzzle *PuzzleHandler, ws *WebSocketHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/countdown", countdown.GetCountdown)
		r.Get("/countdown/target", countdown.GetTarget)
		r.With(middleware.SecretMiddleware).Put("/countdown/target", countdown.SaveTarget)
		r.Get("/timezones", countdown.GetTimezones)

		r.Route("/puzzle/rounds", func(r chi.Router) {
			r.Post("/", puzzle.CreateRound)
			r.Get("/{round_id}", puzzle.GetRound)
			r.Post("/{round_id}/shuffle", puzzle.ShuffleRound)
			r.Post("/{round_id}/moves", puzzle.MovePhoto)
			r.Post("/{round_id}/check", puzzle.CheckRound)
		})
	})

	if ws != nil {
		r.Get("/ws", ws.HandleWebSocket)
	}

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.SecretHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
