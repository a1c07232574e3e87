package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
	"github.com/paperlyst/receipt-extractor/internal/export"
	"github.com/paperlyst/receipt-extractor/internal/ingest"
	"github.com/paperlyst/receipt-extractor/internal/repository"
)

type stubExtractor struct {
	rec entity.ParsedReceipt
	err error
}

func (s *stubExtractor) ExtractReceipt(context.Context, entity.SourceDocument) (entity.ParsedReceipt, error) {
	return s.rec, s.err
}

type testEnv struct {
	srv   *httptest.Server
	files repository.ReceiptFileRepository
	ext   *stubExtractor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: "file::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.Migrate(ctx, db))

	files := repository.NewReceiptFileRepository(db, nil)
	receipts := repository.NewReceiptRepository(db, nil)
	ext := &stubExtractor{rec: entity.ParsedReceipt{MerchantName: "Starbucks", TotalAmount: 12.5}}

	s := New(nil, files, receipts,
		ingest.NewIngestor(files, t.TempDir(), nil),
		ext,
		export.NewService(receipts, nil),
	)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, files: files, ext: ext}
}

func (e *testEnv) upload(t *testing.T, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(e.srv.URL+"/upload", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestUploadValidateProcessFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.upload(t, "starbucks_20230304.pdf", "%PDF-1.4 not really")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var up uploadResponse
	decodeJSON(t, resp, &up)
	assert.False(t, up.Deduplicated)
	id, err := uuid.Parse(up.ID)
	require.NoError(t, err)

	// validation rejects the garbage payload
	resp, err = http.Post(fmt.Sprintf("%s/files/%s/validate", env.srv.URL, id), "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var val validateResponse
	decodeJSON(t, resp, &val)
	assert.False(t, val.IsValid)
	require.NotNil(t, val.InvalidReason)

	// processing an unvalidated file is refused
	resp, err = http.Post(fmt.Sprintf("%s/files/%s/process", env.srv.URL, id), "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	// force the row valid; structural checks are not under test here
	require.NoError(t, env.files.SetValidation(context.Background(), id, true, ""))

	resp, err = http.Post(fmt.Sprintf("%s/files/%s/process", env.srv.URL, id), "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var proc processResponse
	decodeJSON(t, resp, &proc)
	assert.Equal(t, "Starbucks", proc.Receipt.MerchantName)
	assert.Equal(t, 12.5, proc.Receipt.TotalAmount)

	row, err := env.files.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, row.IsProcessed)

	// the stored receipt shows up in the listing
	resp, err = http.Get(env.srv.URL + "/receipts")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []receiptView
	decodeJSON(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Starbucks", list[0].MerchantName)
	assert.Nil(t, list[0].PurchasedAt)

	// and can be fetched individually
	resp, err = http.Get(env.srv.URL + "/receipts/" + list[0].ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var single receiptView
	decodeJSON(t, resp, &single)
	assert.Equal(t, list[0], single)
}

func TestGetReceipt_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(fmt.Sprintf("%s/receipts/%s", env.srv.URL, uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(env.srv.URL + "/receipts/not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUpload_DeduplicatesRepeatContent(t *testing.T) {
	env := newTestEnv(t)

	resp := env.upload(t, "a.pdf", "%PDF same bytes")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first uploadResponse
	decodeJSON(t, resp, &first)

	resp = env.upload(t, "b.pdf", "%PDF same bytes")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var second uploadResponse
	decodeJSON(t, resp, &second)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)
	resp := env.upload(t, "notes.txt", "hello")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestProcess_UnreadableDocumentIs422(t *testing.T) {
	env := newTestEnv(t)
	env.ext.err = fmt.Errorf("%w: cannot rasterize", common.ErrDocumentUnreadable)

	resp := env.upload(t, "broken.pdf", "%PDF broken")
	var up uploadResponse
	decodeJSON(t, resp, &up)
	id := uuid.MustParse(up.ID)
	require.NoError(t, env.files.SetValidation(context.Background(), id, true, ""))

	procResp, err := http.Post(fmt.Sprintf("%s/files/%s/process", env.srv.URL, id), "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, procResp.StatusCode)
	_ = procResp.Body.Close()
}

func TestPathID_Invalid(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Post(env.srv.URL+"/files/not-a-uuid/validate", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Post(fmt.Sprintf("%s/files/%s/validate", env.srv.URL, uuid.New()), "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/receipts/export")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestDateWindow_BadInput(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/receipts?from=03-04-2023")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
