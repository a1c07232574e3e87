package fields

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReceipt = `STARBUCKS Store #42
03/04/2023 2:35 PM
Latte        4.50
Muffin       3.25
TOTAL       12.50`

func TestParse_FullRecord(t *testing.T) {
	p := testParser()
	rec := p.Parse(sampleReceipt, "starbucks_20230304.pdf")

	require.NotNil(t, rec.PurchasedAt)
	assert.Equal(t, time.Date(2023, time.April, 3, 14, 35, 0, 0, time.UTC), *rec.PurchasedAt)
	assert.Equal(t, "Starbucks", rec.MerchantName)
	assert.Equal(t, 12.50, rec.TotalAmount)
}

func TestParse_EmptyTextResolvesToDefaults(t *testing.T) {
	p := testParser()
	rec := p.Parse("", "scan.pdf")

	assert.Nil(t, rec.PurchasedAt)
	assert.Equal(t, "Scan", rec.MerchantName)
	assert.Equal(t, 0.0, rec.TotalAmount)
}

func TestParse_Deterministic(t *testing.T) {
	p := testParser()
	first := p.Parse(sampleReceipt, "starbucks_20230304.pdf")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.Parse(sampleReceipt, "starbucks_20230304.pdf"))
	}
}

func TestValidateReceiptJSON(t *testing.T) {
	p := testParser()
	rec := p.Parse(sampleReceipt, "starbucks_20230304.pdf")
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NoError(t, ValidateReceiptJSON(payload))

	// defaults still satisfy the boundary schema
	rec = p.Parse("", "scan.pdf")
	payload, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.NoError(t, ValidateReceiptJSON(payload))

	assert.Error(t, ValidateReceiptJSON([]byte(`{"merchant_name":""}`)))
	assert.Error(t, ValidateReceiptJSON([]byte(`{"purchased_at":null,"merchant_name":"A","total_amount":-1}`)))
}
