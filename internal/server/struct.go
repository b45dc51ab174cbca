package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/pdfqa-go/internal/session"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. Defaults to the
	// global default registry; tests inject a fresh one.
	Registry *prometheus.Registry
	// MaxUploadBytes caps the size of an uploaded PDF. Defaults to 64 MiB.
	MaxUploadBytes int64
}

// sessionAPI is the slice of the session the handlers need.
// *session.Session satisfies it; tests inject a fake.
type sessionAPI interface {
	Ingest(ctx context.Context, path string) (*session.Report, error)
	Ask(ctx context.Context, question string, opts session.AskOptions) (string, error)
	Reset(ctx context.Context) error
	Status() (documentName string, passages int, ready bool)
}

// Server is the HTTP server that exposes the question-answering session.
type Server struct {
	// session handles all document and question operations.
	session sessionAPI
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// K is the number of passages to retrieve; zero means the default.
	K int `json:"k,omitempty"`
	// Detail requests a longer, more thorough answer.
	Detail bool `json:"detail,omitempty"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	// Answer is the generated answer.
	Answer string `json:"answer"`
}

// ingestResponse is the JSON response for POST /api/ingest.
type ingestResponse struct {
	// Document is the name of the ingested file.
	Document string `json:"document"`
	// Pages is the total page count of the document.
	Pages int `json:"pages"`
	// Passages is the number of passages indexed.
	Passages int `json:"passages"`
}

// statusResponse is the JSON response for GET /api/status.
type statusResponse struct {
	// State is "ready" when a document or saved index is loaded,
	// "no_document" otherwise.
	State string `json:"state"`
	// Document is the name of the loaded document, empty when none.
	Document string `json:"document,omitempty"`
	// Passages is the number of passages in the index.
	Passages int `json:"passages"`
	// Ready indicates a document or saved index is loaded.
	Ready bool `json:"ready"`
}
