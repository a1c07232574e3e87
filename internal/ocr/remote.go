package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/paperlyst/receipt-extractor/internal/common"
)

// Filetype hints for the remote OCR API. FiletypeAuto omits the hint and
// lets the service sniff the payload.
const (
	FiletypePDF  = "PDF"
	FiletypeAuto = ""
)

// RemoteConfig configures the remote OCR API client.
type RemoteConfig struct {
	Endpoint string
	APIKey   string
	Language string  // e.g. "eng"
	Engine   int     // OCR engine variant, service-defined
	Timeout  time.Duration
	RPS      float64 // client-side rate limit; <=0 disables
}

// RemoteClient submits documents to an OCR HTTP API as multipart form
// uploads and returns the parsed text of the first result.
type RemoteClient struct {
	cfg     RemoteConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewRemoteClient(cfg RemoteConfig, client *http.Client, logger *slog.Logger) *RemoteClient {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Engine <= 0 {
		cfg.Engine = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return &RemoteClient{cfg: cfg, client: client, limiter: limiter, logger: logger}
}

type remoteResult struct {
	ParsedText string `json:"ParsedText"`
}

type remoteResponse struct {
	ParsedResults         []remoteResult  `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"` // string or array, service-dependent
}

// ParseDocument uploads the file at path and returns the extracted text.
// filetype is FiletypePDF for raw PDF submissions or FiletypeAuto for
// rendered images. Network trouble, timeouts and non-2xx map to
// ErrProviderUnavailable; a well-formed response with no usable text
// maps to ErrProviderEmpty.
func (c *RemoteClient) ParseDocument(ctx context.Context, path, filetype string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate wait: %v", common.ErrProviderUnavailable, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqID := uuid.New().String()
	start := time.Now()

	body, contentType, err := c.buildForm(path, filetype)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
	}

	c.logger.Info("ocr.remote.request",
		"req_id", reqID,
		"file", filepath.Base(path),
		"filetype", filetype,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("ocr.remote.send_error", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %v", common.ErrProviderUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("ocr.remote.body_close_error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))

	c.logger.Info("ocr.remote.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: status %d", common.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode: %v", common.ErrProviderEmpty, err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("%w: %s", common.ErrProviderEmpty, string(parsed.ErrorMessage))
	}
	if len(parsed.ParsedResults) == 0 {
		return "", fmt.Errorf("%w: no parsed results", common.ErrProviderEmpty)
	}
	// Multi-page submissions return one result per page; the pipeline only
	// considers the first page.
	return parsed.ParsedResults[0].ParsedText, nil
}

func (c *RemoteClient) buildForm(path, filetype string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy file: %w", err)
	}

	fields := map[string]string{
		"language":          c.cfg.Language,
		"OCREngine":         strconv.Itoa(c.cfg.Engine),
		"detectOrientation": "true",
		"scale":             "true",
		"isOverlayRequired": "false",
	}
	if filetype != FiletypeAuto {
		fields["filetype"] = filetype
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %q: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
