package rest

import (
	"net/http"
	"strings"

	"coderoom/internal/docs"
	"coderoom/internal/service"
	"coderoom/internal/transport/rest/handler"
	"coderoom/internal/transport/rest/middleware"
	"coderoom/internal/transport/ws"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	RoomService    *service.RoomService
	Coordinator    *service.Coordinator
	WSHandler      *ws.Handler
	AllowedOrigins string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomService, c.Coordinator)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws", c.WSHandler.ServeWS).Methods("GET")

	// Public routes
	v1.HandleFunc("/docs/swagger.json", serveDocs).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// User routes (require a user token)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/stats", roomHandler.Stats).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/rooms/{roomId}", roomHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/rooms/{roomId}/participants", roomHandler.Invite).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/rooms/{roomId}/presence", roomHandler.Presence).Methods("GET", "OPTIONS")

	return r
}

func serveDocs(w http.ResponseWriter, r *http.Request) {
	doc := docs.SwaggerInfo.ReadDoc()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := allowedOrigins
			if origin != "*" {
				// Echo the request origin when it is on the list
				origin = ""
				for _, o := range strings.Split(allowedOrigins, ",") {
					if strings.TrimSpace(o) == r.Header.Get("Origin") {
						origin = r.Header.Get("Origin")
						break
					}
				}
			}

			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OriginChecker builds the WebSocket origin check from the CORS list
func OriginChecker(allowedOrigins string) func(r *http.Request) bool {
	if allowedOrigins == "" || allowedOrigins == "*" {
		return func(r *http.Request) bool { return true }
	}
	allowed := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		allowed[strings.TrimSpace(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed[origin] {
			return true
		}
		log.Warn().Str("module", "rest").Str("origin", origin).Msg("websocket origin rejected")
		return false
	}
}
