package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/services"
)

// RouterConfig carries everything the API routes depend on.
type RouterConfig struct {
	Store     database.Store
	Hub       *services.Hub
	Auth      *services.AuthService
	Users     *services.UserService
	Projects  *services.ProjectService
	Tasks     *services.TaskService
	Deadlines DeadlineRunner

	Development    bool
	AllowedOrigins []string

	// RateLimiter guards /api when set
	RateLimiter *RateLimiter
}

func NewRouter(cfg RouterConfig) *mux.Router {
	authMiddleware := NewAuthMiddleware(cfg.Auth)
	authHandler := NewAuthHandler(cfg.Users, cfg.Development)
	userHandler := NewUserHandler(cfg.Users, cfg.Development)
	projectHandler := NewProjectHandler(cfg.Projects, cfg.Development)
	taskHandler := NewTaskHandler(cfg.Tasks, cfg.Development)
	wsHandler := NewWebSocketHandler(cfg.Hub, cfg.AllowedOrigins)
	systemHandler := NewSystemHandler(cfg.Deadlines, cfg.Store, cfg.Hub, cfg.Development)

	r := mux.NewRouter()
	r.Use(Recovery, RequestLogger)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, "Route not found")
	})

	api := r.PathPrefix("/api").Subrouter()
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler)
	}

	api.HandleFunc("/health", systemHandler.Health).Methods("GET")

	// Auth routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Everything below needs a token
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.Auth)

	protected.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	protected.HandleFunc("/users", userHandler.List).Methods("GET")
	protected.HandleFunc("/users/{id:[0-9]+}", userHandler.Get).Methods("GET")
	protected.HandleFunc("/users/{id:[0-9]+}", userHandler.Update).Methods("PUT")
	protected.HandleFunc("/users/{id:[0-9]+}", userHandler.Delete).Methods("DELETE")

	protected.HandleFunc("/projects", projectHandler.List).Methods("GET")
	protected.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	protected.HandleFunc("/projects/{id:[0-9]+}", projectHandler.Get).Methods("GET")
	protected.HandleFunc("/projects/{id:[0-9]+}", projectHandler.Update).Methods("PUT")
	protected.HandleFunc("/projects/{id:[0-9]+}", projectHandler.Delete).Methods("DELETE")

	protected.HandleFunc("/tasks", taskHandler.List).Methods("GET")
	protected.HandleFunc("/tasks", taskHandler.Create).Methods("POST")
	protected.HandleFunc("/tasks/{id:[0-9]+}", taskHandler.Get).Methods("GET")
	protected.HandleFunc("/tasks/{id:[0-9]+}", taskHandler.Update).Methods("PUT")
	protected.HandleFunc("/tasks/{id:[0-9]+}", taskHandler.Delete).Methods("DELETE")

	protected.Handle("/deadlines/run", AdminOnly(http.HandlerFunc(systemHandler.RunDeadlines))).Methods("POST")

	// WebSocket route for real-time updates
	protected.HandleFunc("/ws", wsHandler.HandleWebSocket)

	return r
}
