// Package ingest moves uploaded documents into managed storage and
// registers them for processing.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/paperlyst/receipt-extractor/constants"
	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
	"github.com/paperlyst/receipt-extractor/internal/repository"
)

type Ingestor struct {
	files     repository.ReceiptFileRepository
	uploadDir string
	logger    *slog.Logger
}

func NewIngestor(files repository.ReceiptFileRepository, uploadDir string, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{files: files, uploadDir: uploadDir, logger: logger}
}

// SaveUpload stores an uploaded document under the upload dir and
// registers a receipt_file row. The on-disk name is derived from the
// row id, never from the upload name, so two uploads sharing a filename
// cannot clobber each other; the original name lives only on the row.
// Content-identical uploads are deduplicated by sha-256; the existing
// row is returned with dedup=true.
func (i *Ingestor) SaveUpload(ctx context.Context, r io.Reader, filename string) (*entity.ReceiptFile, bool, error) {
	base := filepath.Base(filename)
	if !constants.IsAllowedExt(filepath.Ext(base)) {
		return nil, false, fmt.Errorf("%w: only PDF files are allowed", common.ErrInvalidInput)
	}

	if err := os.MkdirAll(i.uploadDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create upload dir: %w", err)
	}
	id := uuid.New()
	dst := filepath.Join(i.uploadDir, id.String()+".pdf")

	f, err := os.Create(dst)
	if err != nil {
		return nil, false, fmt.Errorf("create %q: %w", dst, err)
	}
	h := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(f, h), r)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(dst)
		return nil, false, fmt.Errorf("write %q: %w", dst, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(dst)
		return nil, false, fmt.Errorf("close %q: %w", dst, closeErr)
	}
	hashHex := hex.EncodeToString(h.Sum(nil))

	if existing, err := i.files.GetByHash(ctx, hashHex); err == nil {
		_ = os.Remove(dst)
		i.logger.Info("ingest.dedup", "file_name", base, "file_id", existing.ID)
		return existing, true, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		_ = os.Remove(dst)
		return nil, false, err
	}

	row := &entity.ReceiptFile{
		ID:          id,
		FileName:    base,
		FilePath:    dst,
		ContentHash: hashHex,
		UploadedAt:  time.Now().UTC(),
	}
	if err := i.files.Create(ctx, row); err != nil {
		return nil, false, err
	}
	i.logger.Info("ingest.saved", "file_name", base, "file_id", row.ID, "hash", hashHex)
	return row, false, nil
}
