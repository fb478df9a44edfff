// Package httpapi implements the relay's HTTP surface.
//
// The API is deliberately tiny: POST /call places an alert call, GET
// /health answers liveness probes, and /swagger/ serves the generated
// OpenAPI docs. Every other path and method gets a JSON 404.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/axluca/callspool/internal/relay"
)

// maxBodyBytes caps the request body; alert payloads are tiny.
const maxBodyBytes = 1 << 20

// tokenHeader carries the shared secret on every /call request.
const tokenHeader = "X-Relay-Token"

// CallPlacer places one validated alert call.
type CallPlacer interface {
	PlaceCall(ctx context.Context, req relay.CallRequest) (*relay.CallResult, error)
}

// ErrorResponse is the JSON body of every non-200 answer.
type ErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Server is the relay API server.
type Server struct {
	port   int
	token  string
	placer CallPlacer
	server *http.Server
}

// New creates the API server. An empty token is allowed here and rejected
// per request with a 500, so a misconfigured relay stays diagnosable over
// HTTP instead of flapping in a restart loop.
func New(port int, token string, placer CallPlacer) *Server {
	return &Server{port: port, token: token, placer: placer}
}

// Handler returns the relay's full HTTP handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Method checks happen inside the handlers: a wrong method is a 404
	// here, not a 405, and it is JSON like everything else.
	mux.HandleFunc("/call", s.handleCall)
	mux.HandleFunc("/health", s.handleHealth)

	// Swagger UI — serves the generated OpenAPI docs. GET and HEAD only,
	// as the "GET /swagger/" pattern would route on a go1.22+ net/http.
	swagger := httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	)
	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed),
				http.StatusMethodNotAllowed)
			return
		}
		swagger.ServeHTTP(w, r)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return s.withRequestLog(mux)
}

// ListenAndServe starts the API server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("relay api listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("relay api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("relay api: %w", err)
	}
	return nil
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleCall places one alert call.
//
// @Summary     Place an alert call
// @Description Synthesizes the message into a telephony-format announcement,
// @Description publishes a call file for the engine, and reports back the
// @Description asset the answered call will play.
// @Tags        call
// @Accept      json
// @Produce     json
// @Param       X-Relay-Token  header    string             true  "Shared relay token"
// @Param       request        body      relay.CallRequest  true  "Destination number and announcement text"
// @Success     200  {object}  relay.CallResult       "Call placed"
// @Failure     400  {object}  httpapi.ErrorResponse  "Malformed body or missing destination"
// @Failure     403  {object}  httpapi.ErrorResponse  "Wrong or missing token"
// @Failure     500  {object}  httpapi.ErrorResponse  "Token unconfigured, or synthesis/publication failed"
// @Router      /call [post]
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	// Refusing every call beats silently placing unauthenticated ones.
	if s.token == "" {
		writeError(w, http.StatusInternalServerError, "relay token not configured")
		return
	}
	if r.Header.Get(tokenHeader) != s.token {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req relay.CallRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.To = strings.TrimSpace(req.To)
	req.Message = strings.TrimSpace(req.Message)
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "missing 'to'")
		return
	}

	result, err := s.placer.PlaceCall(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleHealth answers liveness probes.
//
// @Summary     Liveness probe
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withRequestLog tags each request with an id and logs its outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// --- Response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Reason: reason})
}
