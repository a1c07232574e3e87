package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paperlyst/receipt-extractor/internal/async"
	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/export"
	"github.com/paperlyst/receipt-extractor/internal/fields"
	"github.com/paperlyst/receipt-extractor/internal/ingest"
	"github.com/paperlyst/receipt-extractor/internal/ocr"
	"github.com/paperlyst/receipt-extractor/internal/pipeline"
	"github.com/paperlyst/receipt-extractor/internal/repository"
	"github.com/paperlyst/receipt-extractor/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:         cfg.Database.DSN,
		MaxConns:    cfg.Database.MaxConns,
		MaxIdle:     cfg.Database.MaxIdle,
		DialTimeout: cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("close db", "error", cerr)
		}
	}()
	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("migrate db", "error", err)
		os.Exit(1)
	}

	filesRepo := repository.NewReceiptFileRepository(db, logger)
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
	} else {
		logger.Warn("OCR_API_KEY not set; remote strategies disabled")
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

	ingestor := ingest.NewIngestor(filesRepo, cfg.Upload.Dir, logger)
	exporter := export.NewService(receiptsRepo, logger)

	srv := server.New(logger, filesRepo, receiptsRepo, ingestor, processor, exporter)

	queue := async.NewWorkerQueue(cfg.Server.AsyncWorkers, cfg.Server.AsyncQueueSize,
		func(jobCtx context.Context, job async.Job) {
			row, err := filesRepo.GetByID(jobCtx, job.FileID)
			if err != nil {
				logger.Error("async.load_file.failed", "file_id", job.FileID, "error", err)
				return
			}
			if _, err := srv.ProcessFile(jobCtx, row); err != nil {
				logger.Error("async.process.failed", "file_id", job.FileID, "error", err)
			}
		}, logger)
	srv.SetQueue(queue)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}
