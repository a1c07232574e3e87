package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
)

type ReceiptFileRepository interface {
	Create(ctx context.Context, f *entity.ReceiptFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ReceiptFile, error)
	GetByHash(ctx context.Context, hashHex string) (*entity.ReceiptFile, error)
	SetValidation(ctx context.Context, id uuid.UUID, valid bool, reason string) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

type receiptFileRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewReceiptFileRepository(db *DB, logger *slog.Logger) ReceiptFileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptFileRepo{db: db, logger: logger}
}

const fileColumns = `id, file_name, file_path, content_hash, is_valid, invalid_reason, is_processed, uploaded_at`

func (r *receiptFileRepo) Create(ctx context.Context, f *entity.ReceiptFile) error {
	q := r.db.rebind(`INSERT INTO receipt_file (` + fileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		f.ID.String(), f.FileName, f.FilePath, f.ContentHash,
		f.IsValid, f.InvalidReason, f.IsProcessed, fmtTime(f.UploadedAt))
	if err != nil {
		r.logger.Error("failed to create receipt file", "file_name", f.FileName, "error", err)
		return fmt.Errorf("%w: insert receipt_file: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *receiptFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ReceiptFile, error) {
	q := r.db.rebind(`SELECT ` + fileColumns + ` FROM receipt_file WHERE id = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, q, id.String()))
}

func (r *receiptFileRepo) GetByHash(ctx context.Context, hashHex string) (*entity.ReceiptFile, error) {
	q := r.db.rebind(`SELECT ` + fileColumns + ` FROM receipt_file WHERE content_hash = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, q, hashHex))
}

func (r *receiptFileRepo) scanOne(row *sql.Row) (*entity.ReceiptFile, error) {
	var f entity.ReceiptFile
	var id, uploadedAt string
	err := row.Scan(&id, &f.FileName, &f.FilePath, &f.ContentHash,
		&f.IsValid, &f.InvalidReason, &f.IsProcessed, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan receipt_file: %v", common.ErrDatabase, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q: %v", common.ErrDatabase, id, err)
	}
	f.ID = parsed
	if f.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, fmt.Errorf("%w: bad uploaded_at %q: %v", common.ErrDatabase, uploadedAt, err)
	}
	return &f, nil
}

func (r *receiptFileRepo) SetValidation(ctx context.Context, id uuid.UUID, valid bool, reason string) error {
	var reasonVal any
	if !valid && reason != "" {
		reasonVal = reason
	}
	q := r.db.rebind(`UPDATE receipt_file SET is_valid = ?, invalid_reason = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, valid, reasonVal, id.String())
	if err != nil {
		r.logger.Error("failed to update file validation", "id", id, "error", err)
		return fmt.Errorf("%w: update receipt_file: %v", common.ErrDatabase, err)
	}
	return requireRow(res)
}

func (r *receiptFileRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	q := r.db.rebind(`UPDATE receipt_file SET is_processed = TRUE WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		r.logger.Error("failed to mark file processed", "id", id, "error", err)
		return fmt.Errorf("%w: update receipt_file: %v", common.ErrDatabase, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver cannot report; assume success
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
