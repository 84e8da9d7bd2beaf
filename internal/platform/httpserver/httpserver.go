package httpserver

import (
	"net/http"
	"time"

	"github.com/rs/cors"
)

// New builds an HTTP server with sane defaults for this project. The web
// client is served from another origin, so CORS wraps the whole handler.
func New(addr string, handler http.Handler, allowedOrigins []string) *http.Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return &http.Server{
		Addr:              addr,
		Handler:           c.Handler(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
