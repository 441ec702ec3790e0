package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/docqa-go/internal/catalog"
	"github.com/54b3r/docqa-go/internal/extract"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/rag"
)

// handleUpload handles POST /api/documents. It accepts either a JSON body
// with the document text inline, or a multipart form with a "file" part,
// in which case the text is extracted according to the file's extension.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	filename, text, ok := s.decodeUpload(w, r)
	if !ok {
		s.metrics.ingestDocumentsTotal.WithLabelValues("rejected").Inc()
		return
	}

	added, err := s.pipe.Ingest(r.Context(), filename, text)
	if err != nil {
		log.Error("ingest failed", slog.String("filename", filename), slog.Any("error", err))
		s.metrics.ingestDocumentsTotal.WithLabelValues("error").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, rag.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "ingestion failed", status)
		return
	}

	s.metrics.ingestDocumentsTotal.WithLabelValues("ok").Inc()
	s.metrics.ingestChunksTotal.Add(float64(added))
	s.metrics.ingestDurationSeconds.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, uploadResponse{Filename: filename, ChunksAdded: added})
}

// decodeUpload extracts the filename and document text from the request.
// On failure it writes the error response itself and returns ok=false.
func (s *Server) decodeUpload(w http.ResponseWriter, r *http.Request) (filename, text string, ok bool) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if ct == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "multipart form must carry a \"file\" part", http.StatusBadRequest)
			return "", "", false
		}
		defer file.Close()

		if !extract.Supported(header.Filename) {
			http.Error(w, "unsupported document format", http.StatusUnsupportedMediaType)
			return "", "", false
		}

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "failed to read uploaded file", http.StatusBadRequest)
			return "", "", false
		}
		text, err := extract.Text(header.Filename, data)
		if err != nil {
			http.Error(w, "failed to extract document text", http.StatusUnprocessableEntity)
			return "", "", false
		}
		return header.Filename, text, true
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return "", "", false
	}
	if strings.TrimSpace(req.Filename) == "" {
		http.Error(w, "filename is required", http.StatusBadRequest)
		return "", "", false
	}
	return req.Filename, req.Text, true
}

// handleQuery handles POST /api/query. The response carries the generated
// answer and the source fragments it was grounded on. When generation fails
// after a successful retrieval, the sources are still returned so the client
// gets partial value.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	topK := req.TopK
	if topK < 0 {
		http.Error(w, "top_k must not be negative", http.StatusBadRequest)
		return
	}
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}

	res, err := s.pipe.Query(r.Context(), req.Question, topK)
	if err != nil {
		log.Error("query failed", slog.Any("error", err))
		s.observeQuery("error", start)

		if res != nil && len(res.Sources) > 0 {
			// Retrieval succeeded; hand back the sources with the failure.
			writeJSON(w, http.StatusBadGateway, queryResponse{Sources: toSourceFragments(res.Sources)})
			return
		}
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	s.observeQuery("ok", start)
	writeJSON(w, http.StatusOK, queryResponse{Answer: res.Answer, Sources: toSourceFragments(res.Sources)})
}

// observeQuery records the outcome and latency of one /api/query request.
func (s *Server) observeQuery(outcome string, start time.Time) {
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	chunks, err := s.pipe.Count(r.Context())
	if err != nil {
		log.Error("stats failed", slog.Any("error", err))
		http.Error(w, "failed to read index stats", http.StatusInternalServerError)
		return
	}
	uploads, err := s.pipe.Uploads(r.Context())
	if err != nil {
		log.Error("stats failed", slog.Any("error", err))
		http.Error(w, "failed to read upload catalog", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{TotalVectors: chunks, Documents: len(uploads)})
}

// handleDocuments handles GET /api/documents, listing recorded uploads.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	uploads, err := s.pipe.Uploads(r.Context())
	if err != nil {
		log.Error("documents list failed", slog.Any("error", err))
		http.Error(w, "failed to read upload catalog", http.StatusInternalServerError)
		return
	}
	if uploads == nil {
		uploads = []catalog.Upload{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: uploads})
}

// handleClear handles POST /api/clear, removing every indexed chunk and
// upload record.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := s.pipe.Clear(r.Context()); err != nil {
		log.Error("clear failed", slog.Any("error", err))
		http.Error(w, "failed to clear index", http.StatusInternalServerError)
		return
	}

	log.Info("index cleared")
	writeJSON(w, http.StatusOK, clearResponse{Cleared: true})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
