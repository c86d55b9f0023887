package httpapi

import (
	"net/http"
	"strings"

	"github.com/DoyleJ11/tier-auction/internal/auth"
	"github.com/DoyleJ11/tier-auction/internal/lobby"
	"github.com/DoyleJ11/tier-auction/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Deps struct {
	Lobby       *lobby.Lobby
	Resolver    *auth.Resolver
	Logger      *zap.Logger
	CORSOrigins []string
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}).Handler)

	// Public routes
	r.Post("/auth", Authenticate(d.Resolver))
	r.Get("/state", State(d.Lobby))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Lobby, d.Resolver, ws.Options{
		Logger:         d.Logger,
		OriginPatterns: originPatterns(d.CORSOrigins),
	}))
	return r
}

// originPatterns strips schemes: the websocket origin check matches hosts.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if host, ok := strings.CutPrefix(o, "https://"); ok {
			o = host
		} else if host, ok := strings.CutPrefix(o, "http://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
