package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
)

type stubReceiptRepo struct {
	recs     []*entity.Receipt
	gotFrom  *time.Time
	gotTo    *time.Time
	listErr  error
	listCall int
}

func (s *stubReceiptRepo) Create(context.Context, *entity.Receipt) error { return nil }

func (s *stubReceiptRepo) GetByID(context.Context, uuid.UUID) (*entity.Receipt, error) {
	return nil, common.ErrNotFound
}

func (s *stubReceiptRepo) List(_ context.Context, from, to *time.Time) ([]*entity.Receipt, error) {
	s.listCall++
	s.gotFrom, s.gotTo = from, to
	return s.recs, s.listErr
}

func TestExportReceiptsXLSX_WritesRows(t *testing.T) {
	purchased := time.Date(2023, 4, 3, 14, 35, 0, 0, time.UTC)
	repo := &stubReceiptRepo{recs: []*entity.Receipt{
		{
			ID:           uuid.New(),
			PurchasedAt:  &purchased,
			MerchantName: "Starbucks",
			TotalAmount:  12.5,
			FilePath:     "/data/receipts/starbucks_1.pdf",
		},
		{
			ID:           uuid.New(),
			MerchantName: "Unknown",
			TotalAmount:  0,
			FilePath:     "/data/receipts/scan.pdf",
		},
	}}
	svc := NewService(repo, nil)

	data, err := svc.ExportReceiptsXLSX(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, repo.gotFrom)
	assert.Nil(t, repo.gotTo)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Purchased At", "Merchant", "Total Amount", "Receipt/File Path"}, rows[0])
	assert.Equal(t, []string{"2023-04-03 14:35", "Starbucks", "12.50", "/data/receipts/starbucks_1.pdf"}, rows[1])
	// a dateless receipt leaves the first cell blank
	assert.Equal(t, "Unknown", rows[2][1])
	assert.Equal(t, "0.00", rows[2][2])
}

func TestExportReceiptsXLSX_NormalizesWindow(t *testing.T) {
	repo := &stubReceiptRepo{}
	svc := NewService(repo, nil)

	from := time.Date(2023, 3, 15, 13, 45, 0, 0, time.UTC)
	to := time.Date(2023, 6, 20, 8, 0, 0, 0, time.UTC)
	_, err := svc.ExportReceiptsXLSX(context.Background(), &from, &to)
	require.NoError(t, err)

	require.NotNil(t, repo.gotFrom)
	require.NotNil(t, repo.gotTo)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), *repo.gotFrom)
	assert.Equal(t, time.Date(2023, 6, 20, 23, 59, 59, 0, time.UTC), *repo.gotTo)
}

func TestExportReceiptsXLSX_FromOnlyExtendsToToday(t *testing.T) {
	repo := &stubReceiptRepo{}
	svc := NewService(repo, nil)

	from := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.ExportReceiptsXLSX(context.Background(), &from, nil)
	require.NoError(t, err)

	require.NotNil(t, repo.gotTo)
	now := time.Now().UTC()
	assert.Equal(t, now.Year(), repo.gotTo.Year())
	assert.Equal(t, now.YearDay(), repo.gotTo.YearDay())
}

func TestExportReceiptsXLSX_EmptyResultStillProducesWorkbook(t *testing.T) {
	svc := NewService(&stubReceiptRepo{}, nil)

	data, err := svc.ExportReceiptsXLSX(context.Background(), nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
