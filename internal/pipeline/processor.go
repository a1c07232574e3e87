// Package pipeline composes OCR acquisition and field parsing into one
// deterministic function: document -> ParsedReceipt.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/paperlyst/receipt-extractor/internal/entity"
	"github.com/paperlyst/receipt-extractor/internal/extract"
)

// Processor coordinates text acquisition (Stage 1) then field parsing
// (Stage 2).
type Processor struct {
	logger *slog.Logger
	text   extract.TextExtractor
	fields extract.FieldParser
}

func NewProcessor(logger *slog.Logger, text extract.TextExtractor, fields extract.FieldParser) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, text: text, fields: fields}
}

// ExtractReceipt runs the acquisition chain, then the three field
// extractors over the resulting text and the document's filename, and
// assembles the record. OCR and parsing misses never fail; callers
// always get a fully-populated (possibly default-valued) record. The
// only error returned is the chain's fatal document-unreadable case.
func (p *Processor) ExtractReceipt(ctx context.Context, doc entity.SourceDocument) (entity.ParsedReceipt, error) {
	res, err := p.text.Extract(ctx, doc)
	if err != nil {
		p.logger.Error("pipeline.ocr.failed", "file", doc.Filename, "error", err)
		return entity.ParsedReceipt{}, err
	}
	if res.Empty() {
		p.logger.Info("pipeline.ocr.no_text", "file", doc.Filename)
	}

	rec := p.fields.Parse(res.Text, doc.Filename)

	p.logger.Info("pipeline.extract.ok",
		"file", doc.Filename,
		"strategy", res.Strategy,
		"ocr_bytes", len(res.Text),
		"merchant", rec.MerchantName,
		"has_date", rec.PurchasedAt != nil,
		"total", rec.TotalAmount,
	)
	return rec, nil
}
