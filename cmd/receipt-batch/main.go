package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/paperlyst/receipt-extractor/constants"
	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
	"github.com/paperlyst/receipt-extractor/internal/export"
	"github.com/paperlyst/receipt-extractor/internal/fields"
	"github.com/paperlyst/receipt-extractor/internal/ingest"
	"github.com/paperlyst/receipt-extractor/internal/ocr"
	"github.com/paperlyst/receipt-extractor/internal/pipeline"
	"github.com/paperlyst/receipt-extractor/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir     = flag.String("dir", "", "directory of receipt PDFs to process (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers = flag.Int("workers", 4, "concurrent extractions")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "receipts.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()

	dsn := cfg.Database.DSN
	if *inmem {
		dsn = "file::memory:"
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:         dsn,
		MaxConns:    cfg.Database.MaxConns,
		MaxIdle:     cfg.Database.MaxIdle,
		DialTimeout: cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("migrate db", "error", err)
		os.Exit(1)
	}

	receiptsRepo := repository.NewReceiptRepository(db, logger)

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

	// Collect PDFs
	var paths []string
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if constants.IsAllowedExt(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		logger.Error("walk directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("batch start", "dir", *dir, "files", len(paths), "workers", *workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)

	var processed int
	results := make(chan *entity.Receipt, len(paths))
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ingest.MustValidatePDF(path); err != nil {
				logger.Warn("batch.skip_invalid", "file", path, "error", err)
				return nil
			}
			rec, err := processor.ExtractReceipt(gctx, entity.SourceDocument{
				Path:     path,
				Filename: filepath.Base(path),
			})
			if err != nil {
				logger.Error("batch.extract.failed", "file", path, "error", err)
				return nil // keep going; a bad document should not sink the batch
			}
			results <- &entity.Receipt{
				ID:           uuid.New(),
				PurchasedAt:  rec.PurchasedAt,
				MerchantName: rec.MerchantName,
				TotalAmount:  rec.TotalAmount,
				FilePath:     path,
				CreatedAt:    time.Now().UTC(),
			}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for rec := range results {
		if err := receiptsRepo.Create(ctx, rec); err != nil {
			logger.Error("batch.store.failed", "file", rec.FilePath, "error", err)
			continue
		}
		processed++
	}

	exporter := export.NewService(receiptsRepo, logger)
	data, err := exporter.ExportReceiptsXLSX(ctx, nil, nil)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("write xlsx", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch done", "processed", processed, "failed", len(paths)-processed, "out", *out)
}
