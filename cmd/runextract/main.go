package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
	"github.com/paperlyst/receipt-extractor/internal/fields"
	"github.com/paperlyst/receipt-extractor/internal/ocr"
	"github.com/paperlyst/receipt-extractor/internal/pipeline"
)

// runextract extracts a single receipt and prints the record as JSON.
// No database required.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <receipt.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var remote *ocr.RemoteClient
	if cfg.OCR.RemoteAPIKey != "" {
		remote = ocr.NewRemoteClient(ocr.RemoteConfig{
			Endpoint: cfg.OCR.RemoteEndpoint,
			APIKey:   cfg.OCR.RemoteAPIKey,
			Language: cfg.OCR.Language,
			Engine:   cfg.OCR.Engine,
			Timeout:  cfg.OCR.RemoteTimeout,
			RPS:      cfg.OCR.RemoteRPS,
		}, nil, logger)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.Language,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
	}, remote, logger)
	parser := fields.NewParser(fields.Config{PreferTextMatch: cfg.OCR.PreferTextMatch}, logger)
	processor := pipeline.NewProcessor(logger, extractor, parser)

	start := time.Now()
	rec, err := processor.ExtractReceipt(ctx, entity.SourceDocument{
		Path:     path,
		Filename: filepath.Base(path),
	})
	if err != nil {
		logger.Error("extraction failed", "file", path, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		logger.Error("encode record", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
