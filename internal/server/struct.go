package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docqa-go/internal/catalog"
	"github.com/54b3r/docqa-go/internal/pipeline"
	"github.com/54b3r/docqa-go/internal/rag"
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
	// Must cover a full retrieval + generation round trip.
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
	// DefaultTopK is the fragment count used when a query omits top_k.
	DefaultTopK int
	// MaxUploadBytes caps the accepted request body size on POST /api/documents.
	// Defaults to 32 MiB if zero.
	MaxUploadBytes int64
	// MetricsRegistry receives all Prometheus metric registrations. If nil,
	// prometheus.DefaultRegisterer is used. Tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. If nil, prometheus.DefaultGatherer
	// is used.
	MetricsGatherer prometheus.Gatherer
}

// orchestrator is the interface the handlers call to run ingestion and
// question answering. *pipeline.Pipeline satisfies it; tests inject a fake.
type orchestrator interface {
	Ingest(ctx context.Context, filename, text string) (int, error)
	Query(ctx context.Context, question string, topK int) (*pipeline.Result, error)
	Count(ctx context.Context) (uint64, error)
	Uploads(ctx context.Context) ([]catalog.Upload, error)
	Clear(ctx context.Context) error
}

// Server is the HTTP server that exposes the document Q&A pipeline.
type Server struct {
	// pipe runs ingestion and question answering.
	pipe orchestrator
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

// uploadRequest is the JSON body for POST /api/documents.
type uploadRequest struct {
	// Filename identifies the document; chunk ids derive from it.
	Filename string `json:"filename"`
	// Text is the document's plain text content.
	Text string `json:"text"`
}

// uploadResponse is the JSON response for POST /api/documents.
type uploadResponse struct {
	// Filename is the name the document was stored under.
	Filename string `json:"filename"`
	// ChunksAdded is how many chunks the ingestion produced.
	ChunksAdded int `json:"chunks_added"`
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the natural language question to answer.
	Question string `json:"question"`
	// TopK is the number of fragments to retrieve. Zero means the server default.
	TopK int `json:"top_k"`
}

// sourceFragment is the wire form of one retrieved fragment.
type sourceFragment struct {
	// ChunkID is the deterministic chunk identifier.
	ChunkID string `json:"chunk_id"`
	// Filename is the document the fragment was cut from.
	Filename string `json:"filename"`
	// Score is the cosine similarity assigned during retrieval.
	Score float32 `json:"score"`
	// Text is the fragment text.
	Text string `json:"text"`
}

// queryResponse is the JSON response for POST /api/query.
type queryResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources are the retrieved fragments the answer was grounded on.
	Sources []sourceFragment `json:"sources"`
}

// toSourceFragments converts retrieved fragments to their wire form.
// A nil or empty input yields an empty slice so the JSON is always an array.
func toSourceFragments(fragments []rag.Fragment) []sourceFragment {
	out := make([]sourceFragment, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, sourceFragment{
			ChunkID:  f.ID,
			Filename: f.Filename,
			Score:    f.Score,
			Text:     f.Text,
		})
	}
	return out
}

// statsResponse is the JSON response for GET /api/stats.
type statsResponse struct {
	// TotalVectors is the number of chunk vectors currently indexed.
	TotalVectors uint64 `json:"total_vectors"`
	// Documents is the number of recorded uploads.
	Documents int `json:"documents"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Documents lists recorded uploads, newest first.
	Documents []catalog.Upload `json:"documents"`
}

// clearResponse is the JSON response for POST /api/clear.
type clearResponse struct {
	// Cleared is true when the index and catalog were emptied.
	Cleared bool `json:"cleared"`
}
