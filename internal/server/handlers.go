package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paperlyst/receipt-extractor/internal/async"
	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
	"github.com/paperlyst/receipt-extractor/internal/fields"
	"github.com/paperlyst/receipt-extractor/internal/ingest"
)

const maxUploadBytes = 32 << 20

type uploadResponse struct {
	Message      string `json:"message"`
	ID           string `json:"id"`
	Deduplicated bool   `json:"deduplicated"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, r, common.NewAppError("BAD_UPLOAD", "invalid multipart form", common.ErrInvalidInput))
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, common.NewAppError("BAD_UPLOAD", "missing file part", common.ErrInvalidInput))
		return
	}
	defer func() { _ = f.Close() }()

	row, dedup, err := s.ingestor.SaveUpload(r.Context(), f, hdr.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, uploadResponse{
		Message:      "File uploaded successfully",
		ID:           row.ID.String(),
		Deduplicated: dedup,
	})
}

type validateResponse struct {
	IsValid       bool    `json:"is_valid"`
	InvalidReason *string `json:"invalid_reason"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := s.files.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	valid, reason := ingest.ValidatePDF(row.FilePath)
	if err := s.files.SetValidation(r.Context(), row.ID, valid, reason); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := validateResponse{IsValid: valid}
	if !valid {
		resp.InvalidReason = &reason
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type processResponse struct {
	Message string               `json:"message"`
	Receipt entity.ParsedReceipt `json:"receipt"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := s.files.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !row.IsValid {
		s.writeError(w, r, common.NewAppError("NOT_VALIDATED",
			"file is not validated; call validate first", common.ErrInvalidInput))
		return
	}

	if ok, _ := strconv.ParseBool(r.URL.Query().Get("async")); ok && s.queue != nil {
		job := async.Job{
			FileID:      row.ID,
			SubmittedAt: time.Now().UTC(),
			TraceID:     common.RequestIDFromContext(r.Context()),
		}
		if err := s.queue.Enqueue(r.Context(), job); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, map[string]string{"message": "Processing queued"})
		return
	}

	rec, err := s.ProcessFile(r.Context(), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, processResponse{Message: "Receipt processed successfully", Receipt: rec})
}

// ProcessFile runs the pipeline on a validated file, checks the output
// record against the boundary schema, persists it and marks the file
// processed. Also the worker-queue entry point.
func (s *Server) ProcessFile(ctx context.Context, row *entity.ReceiptFile) (entity.ParsedReceipt, error) {
	doc := entity.SourceDocument{Path: row.FilePath, Filename: row.FileName}
	rec, err := s.extractor.ExtractReceipt(ctx, doc)
	if err != nil {
		return entity.ParsedReceipt{}, err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return entity.ParsedReceipt{}, fmt.Errorf("encode record: %w", err)
	}
	if err := fields.ValidateReceiptJSON(payload); err != nil {
		return entity.ParsedReceipt{}, fmt.Errorf("record validation: %w", err)
	}

	stored := &entity.Receipt{
		ID:           uuid.New(),
		PurchasedAt:  rec.PurchasedAt,
		MerchantName: rec.MerchantName,
		TotalAmount:  rec.TotalAmount,
		FilePath:     row.FilePath,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.receipts.Create(ctx, stored); err != nil {
		return entity.ParsedReceipt{}, err
	}
	if err := s.files.MarkProcessed(ctx, row.ID); err != nil {
		return entity.ParsedReceipt{}, err
	}
	return rec, nil
}

type receiptView struct {
	ID           string  `json:"id"`
	PurchasedAt  *string `json:"purchased_at"`
	MerchantName string  `json:"merchant_name"`
	TotalAmount  float64 `json:"total_amount"`
	FilePath     string  `json:"file_path"`
}

func toReceiptView(rec *entity.Receipt) receiptView {
	v := receiptView{
		ID:           rec.ID.String(),
		MerchantName: rec.MerchantName,
		TotalAmount:  rec.TotalAmount,
		FilePath:     rec.FilePath,
	}
	if rec.PurchasedAt != nil {
		ts := rec.PurchasedAt.UTC().Format(time.RFC3339)
		v.PurchasedAt = &ts
	}
	return v
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recs, err := s.receipts.List(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]receiptView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toReceiptView(rec))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.receipts.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toReceiptView(rec))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.exporter.ExportReceiptsXLSX(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("server.write_response_error", "error", err)
	}
}

// dateWindow parses optional from/to query params (YYYY-MM-DD).
func dateWindow(r *http.Request) (*time.Time, *time.Time, error) {
	parse := func(key string) (*time.Time, error) {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return nil, nil
		}
		t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return nil, common.NewAppError("BAD_DATE",
				fmt.Sprintf("%s must be YYYY-MM-DD", key), common.ErrInvalidInput)
		}
		return &t, nil
	}
	from, err := parse("from")
	if err != nil {
		return nil, nil, err
	}
	to, err := parse("to")
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
