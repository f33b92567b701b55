package progress

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DiscoveryLookup resolves a run ID to the path of its discovery_result.json
// artifact on disk.
type DiscoveryLookup func(runID string) (path string, ok bool)

// Server is the small HTTP surface the external UI polls/streams: run
// progress over SSE and the discovery artifact, per spec §4.15/§6.
type Server struct {
	publisher *Publisher
	discovery DiscoveryLookup
	secret    []byte
	logger    *zap.Logger
}

// NewServer constructs the HTTP surface. secret may be nil to disable bearer
// authentication (local/dev runs); when set, every request must carry a
// valid HS256 JWT in the Authorization header.
func NewServer(publisher *Publisher, discovery DiscoveryLookup, secret []byte, logger *zap.Logger) *Server {
	return &Server{publisher: publisher, discovery: discovery, secret: secret, logger: logger}
}

// Router builds the chi router: CORS for the UI origin, request logging,
// and the two read endpoints the UI consumes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	if s.secret != nil {
		r.Use(s.authenticate)
	}

	r.Get("/runs/{runID}/events", s.handleEvents)
	r.Get("/runs/{runID}/discovery", s.handleDiscovery)
	return r
}

// authenticate rejects requests without a valid HS256 bearer token signed
// with s.secret.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token := header[len(prefix):]

		_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleEvents streams Server-Sent Events for one run until the client
// disconnects or the run's publisher channel is closed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.publisher.Subscribe(runID)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleDiscovery serves the run's discovery_result.json artifact verbatim.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	path, ok := s.discovery(runID)
	if !ok {
		http.Error(w, "unknown run", http.StatusNotFound)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to read discovery artifact", zap.String("run_id", runID), zap.Error(err))
		http.Error(w, "discovery artifact unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// IssueToken mints a short-lived HS256 bearer token for a run's UI
// session, signed with secret. Exposed so cmd/migrator can hand the UI a
// token out-of-band at run start without embedding auth logic there.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
