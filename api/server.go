package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"minim/metrics"
	"minim/store"
)

// Server holds the stateless request/response handlers: login, search,
// contacts and history fetch. It talks to the store only; real-time delivery
// lives behind the gateway.
type Server struct {
	store     *store.Store
	log       *zap.Logger
	validate  *validator.Validate
	collector *metrics.Collector
}

func New(st *store.Store, log *zap.Logger, collector *metrics.Collector) *Server {
	return &Server{
		store:     st,
		log:       log,
		validate:  validator.New(),
		collector: collector,
	}
}

// Router configures all routes and middleware.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(s.logRequests)
	router.Use(s.countRequests)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", s.healthCheck)
	router.Method(http.MethodGet, "/metrics", s.collector.Handler())

	router.Post("/login", s.login)
	router.Post("/search_user", s.searchUser)
	router.Post("/add_contact", s.addContact)
	router.Get("/get_contacts", s.getContacts)
	router.Post("/get_history", s.getHistory)

	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
