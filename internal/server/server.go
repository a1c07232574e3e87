// Package server exposes the upload/validate/process/export flow over
// HTTP. It is glue around the extraction core: no parsing logic lives
// here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/paperlyst/receipt-extractor/internal/async"
	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
	"github.com/paperlyst/receipt-extractor/internal/export"
	"github.com/paperlyst/receipt-extractor/internal/ingest"
	"github.com/paperlyst/receipt-extractor/internal/repository"
)

// ReceiptExtractor is the pipeline surface the server depends on.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, doc entity.SourceDocument) (entity.ParsedReceipt, error)
}

type Server struct {
	logger    *slog.Logger
	files     repository.ReceiptFileRepository
	receipts  repository.ReceiptRepository
	ingestor  *ingest.Ingestor
	extractor ReceiptExtractor
	exporter  *export.Service
	queue     async.Queue // optional; nil disables ?async=true
}

func New(
	logger *slog.Logger,
	files repository.ReceiptFileRepository,
	receipts repository.ReceiptRepository,
	ingestor *ingest.Ingestor,
	extractor ReceiptExtractor,
	exporter *export.Service,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:    logger,
		files:     files,
		receipts:  receipts,
		ingestor:  ingestor,
		extractor: extractor,
		exporter:  exporter,
	}
}

// SetQueue enables background processing via POST /files/{id}/process?async=true.
func (s *Server) SetQueue(q async.Queue) { s.queue = q }

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/files/{id}/validate", s.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/files/{id}/process", s.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/receipts", s.handleListReceipts).Methods(http.MethodGet)
	r.HandleFunc("/receipts/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/receipts/{id}", s.handleGetReceipt).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.write_response_error", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the application error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrDocumentUnreadable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, async.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	s.logger.Warn("server.request_failed",
		"req_id", common.RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) pathID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.NewAppError("BAD_ID", "id must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
