package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
)

type ReceiptRepository interface {
	Create(ctx context.Context, rec *entity.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	// List returns receipts ordered by creation time; from/to filter on
	// the purchase date (inclusive) when non-nil.
	List(ctx context.Context, from, to *time.Time) ([]*entity.Receipt, error)
}

type receiptRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewReceiptRepository(db *DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepo{db: db, logger: logger}
}

func (r *receiptRepo) Create(ctx context.Context, rec *entity.Receipt) error {
	q := r.db.rebind(`INSERT INTO receipt (id, purchased_at, merchant_name, total_amount, file_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		rec.ID.String(), fmtTimePtr(rec.PurchasedAt), rec.MerchantName, rec.TotalAmount,
		rec.FilePath, fmtTime(rec.CreatedAt))
	if err != nil {
		r.logger.Error("failed to create receipt", "merchant", rec.MerchantName, "error", err)
		return fmt.Errorf("%w: insert receipt: %v", common.ErrDatabase, err)
	}
	return nil
}

const receiptColumns = `id, purchased_at, merchant_name, total_amount, file_path, created_at`

func (r *receiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	q := r.db.rebind(`SELECT ` + receiptColumns + ` FROM receipt WHERE id = ?`)
	rec, err := scanReceipt(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return rec, err
}

func (r *receiptRepo) List(ctx context.Context, from, to *time.Time) ([]*entity.Receipt, error) {
	q := `SELECT ` + receiptColumns + ` FROM receipt`
	var args []any
	var conds []string
	if from != nil {
		conds = append(conds, "purchased_at >= ?")
		args = append(args, fmtTime(*from))
	}
	if to != nil {
		conds = append(conds, "purchased_at <= ?")
		args = append(args, fmtTime(*to))
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list receipts", "error", err)
		return nil, fmt.Errorf("%w: query receipts: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(s rowScanner) (*entity.Receipt, error) {
	var rec entity.Receipt
	var id, createdAt string
	var purchasedAt *string
	err := s.Scan(&id, &purchasedAt, &rec.MerchantName,
		&rec.TotalAmount, &rec.FilePath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan receipt: %v", common.ErrDatabase, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q: %v", common.ErrDatabase, id, err)
	}
	rec.ID = parsed
	if rec.PurchasedAt, err = parseTimePtr(purchasedAt); err != nil {
		return nil, fmt.Errorf("%w: bad purchased_at: %v", common.ErrDatabase, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%w: bad created_at %q: %v", common.ErrDatabase, createdAt, err)
	}
	return &rec, nil
}
