package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of allowed origins. A "*" entry allows
	// every origin, which is only safe in development.
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST, PUT, PATCH, DELETE, OPTIONS if empty.
	AllowedMethods []string

	// AllowedHeaders defaults to Accept, Authorization, Content-Type,
	// X-Correlation-ID if empty.
	AllowedHeaders []string

	// ExposedHeaders is the list of headers the browser may access.
	ExposedHeaders []string

	// MaxAge is how long (in seconds) preflight results can be cached.
	// Defaults to 3600 if 0.
	MaxAge int

	// AllowCredentials indicates whether credentials are supported.
	AllowCredentials bool

	// Environment controls wildcard behavior. Wildcard origins are only
	// accepted when Environment is "development" or AllowedOrigins
	// explicitly contains "*".
	Environment string
}

// DefaultCORSConfig returns a CORS configuration suitable for development.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Correlation-ID"},
		MaxAge:         3600,
		Environment:    "development",
	}
}

// corsHeaders is the precomputed header set applied to every response.
type corsHeaders struct {
	methods  string
	headers  string
	exposed  string
	maxAge   string
	wildcard bool
	origins  []string
}

// CORS returns middleware that handles Cross-Origin Resource Sharing headers
// based on the provided configuration. Preflight OPTIONS requests are
// answered directly with 204.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	h := corsHeaders{
		methods:  strings.Join(cfg.AllowedMethods, ", "),
		headers:  strings.Join(cfg.AllowedHeaders, ", "),
		exposed:  strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:   strconv.Itoa(cfg.MaxAge),
		wildcard: cfg.Environment == "development" || slices.Contains(cfg.AllowedOrigins, "*"),
		origins:  cfg.AllowedOrigins,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := w.Header()

			switch {
			case h.wildcard:
				hdr.Set("Access-Control-Allow-Origin", "*")
			default:
				if origin := r.Header.Get("Origin"); origin != "" && slices.Contains(h.origins, origin) {
					hdr.Set("Access-Control-Allow-Origin", origin)
					hdr.Set("Vary", "Origin")
				}
			}

			hdr.Set("Access-Control-Allow-Methods", h.methods)
			hdr.Set("Access-Control-Allow-Headers", h.headers)
			if h.exposed != "" {
				hdr.Set("Access-Control-Expose-Headers", h.exposed)
			}
			hdr.Set("Access-Control-Max-Age", h.maxAge)
			if cfg.AllowCredentials {
				hdr.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
