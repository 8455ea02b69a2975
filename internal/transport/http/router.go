package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"hourfarm/internal/app/accounts"
	"hourfarm/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(svc *accounts.Service, cfg config.ServerConfig) *chi.Mux {
	h := NewAccountHandlers(svc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Use(APILogMiddleware())
		if cfg.LogHTTPBodies {
			r.Use(BodyCaptureMiddleware(cfg.LogBodyMaxBytes))
		}
		r.Get("/", h.List())
		r.Post("/", h.Add())
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.Remove())
			r.Post("/farm-mode", h.SetFarmMode())
			r.Post("/toggle-farm", h.ToggleFarm())
			r.Post("/two-factor", h.SubmitTwoFactor())
			r.Post("/relogin", h.Relogin())
			r.Post("/toggle-offline", h.ToggleOffline())
			r.Post("/fetch-library", h.FetchLibrary())
		})
	})

	r.With(APILogMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
