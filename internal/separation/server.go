package separation

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/cargo-match/internal/reconcile"
)

// Server handles HTTP requests for scans and reconciliation runs
type Server struct {
	service     *Service
	basicAuth   BasicAuth
	destination reconcile.Destination
	mux         *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux. destination is used for
// runs whose request names none.
func NewServer(service *Service, basicAuth BasicAuth, destination reconcile.Destination) *Server {
	return NewServerWithMux(service, basicAuth, destination, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, destination reconcile.Destination, mux *http.ServeMux) *Server {
	s := &Server{
		service:     service,
		basicAuth:   basicAuth,
		destination: destination,
		mux:         mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Cargo Match"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes, most specific first
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/scans/text", s.requireAuth(s.handleSubmitText))
	s.mux.HandleFunc("GET /api/scans/{id}/image", s.requireAuth(s.handleGetItemImage))
	s.mux.HandleFunc("GET /api/scans/{id}", s.requireAuth(s.handleGetItem))
	s.mux.HandleFunc("DELETE /api/scans/{id}", s.requireAuth(s.handleDeleteItem))
	s.mux.HandleFunc("GET /api/scans", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/scans", s.requireAuth(s.handleSubmitScan))
	s.mux.HandleFunc("DELETE /api/scans", s.requireAuth(s.handleClearItems))

	s.mux.HandleFunc("GET /api/runs/{id}/manifest.xlsx", s.requireAuth(s.handleGetManifestXLSX))
	s.mux.HandleFunc("GET /api/runs/{id}/manifest", s.requireAuth(s.handleGetManifest))
	s.mux.HandleFunc("GET /api/runs/{id}", s.requireAuth(s.handleGetRun))
	s.mux.HandleFunc("GET /api/runs", s.requireAuth(s.handleListRuns))
	s.mux.HandleFunc("POST /api/runs", s.requireAuth(s.handleCreateRun))

	s.mux.HandleFunc("GET /api/reconciliation", s.requireAuth(s.handlePreview))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
