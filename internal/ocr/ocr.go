package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paperlyst/receipt-extractor/internal/common"
	"github.com/paperlyst/receipt-extractor/internal/entity"
)

// Config holds the local tooling used by the acquisition chain. Binary
// locations are resolved once at startup (see common.LoadConfig) and
// passed in; defaults are filled here.
type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI, default 300
}

// Extractor is the OCR acquisition chain: an ordered sequence of
// strategies tried until one yields non-empty text. A nil remote client
// skips both remote strategies.
type Extractor struct {
	cfg    Config
	remote *RemoteClient
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, remote *RemoteClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, remote: remote, runner: execRunner{logger: logger}, logger: logger}
}

// Extract walks the strategy chain: remote on the raw PDF, remote on a
// rendered first-page image, then local tesseract on that image. The
// first non-empty result wins and later strategies are never invoked.
//
// Strategy failures are logged and absorbed here; they never propagate.
// All strategies exhausted is not an error either: the caller gets the
// StrategyNone sentinel and downstream parsing degrades gracefully. The
// one exception is a document the renderer cannot open when no text was
// obtained any other way; that surfaces as ErrDocumentUnreadable.
func (e *Extractor) Extract(ctx context.Context, doc entity.SourceDocument) (entity.ExtractedText, error) {
	if e.remote != nil {
		text, err := e.remote.ParseDocument(ctx, doc.Path, FiletypePDF)
		if err != nil {
			e.logger.Warn("ocr.chain.remote_pdf.failed", "file", doc.Filename, "error", err)
		} else if strings.TrimSpace(text) != "" {
			e.logger.Info("ocr.chain.done", "file", doc.Filename, "strategy", entity.StrategyRemotePDF)
			return entity.ExtractedText{Text: Normalize(text), Strategy: entity.StrategyRemotePDF}, nil
		} else {
			e.logger.Debug("ocr.chain.remote_pdf.empty", "file", doc.Filename)
		}
	}

	// Both remaining strategies consume the same first-page raster; a
	// document that cannot be rasterized blocks them both.
	imgPath, cleanup, err := e.renderFirstPage(ctx, doc.Path)
	if err != nil {
		e.logger.Error("ocr.chain.render.failed", "file", doc.Filename, "error", err)
		return entity.ExtractedText{Strategy: entity.StrategyNone},
			fmt.Errorf("%w: %v", common.ErrDocumentUnreadable, err)
	}
	defer cleanup()

	if e.remote != nil {
		text, err := e.remote.ParseDocument(ctx, imgPath, FiletypeAuto)
		if err != nil {
			e.logger.Warn("ocr.chain.remote_image.failed", "file", doc.Filename, "error", err)
		} else if strings.TrimSpace(text) != "" {
			e.logger.Info("ocr.chain.done", "file", doc.Filename, "strategy", entity.StrategyRemoteImage)
			return entity.ExtractedText{Text: Normalize(text), Strategy: entity.StrategyRemoteImage}, nil
		} else {
			e.logger.Debug("ocr.chain.remote_image.empty", "file", doc.Filename)
		}
	}

	text, err := e.tesseractOCR(ctx, imgPath)
	if err != nil {
		e.logger.Warn("ocr.chain.local.failed", "file", doc.Filename, "error", err)
	} else if strings.TrimSpace(text) != "" {
		e.logger.Info("ocr.chain.done", "file", doc.Filename, "strategy", entity.StrategyLocalOCR)
		return entity.ExtractedText{Text: Normalize(text), Strategy: entity.StrategyLocalOCR}, nil
	}

	e.logger.Info("ocr.chain.exhausted", "file", doc.Filename)
	return entity.ExtractedText{Strategy: entity.StrategyNone}, nil
}
