// Package fields recovers the purchase timestamp, merchant name and
// total amount from noisy OCR text. Every heuristic here degrades to a
// documented default instead of failing: an absent timestamp, a 0.0
// total, an "Unknown" merchant.
package fields

import (
	"log/slog"

	"github.com/paperlyst/receipt-extractor/internal/entity"
)

// Config holds parsing policy knobs.
type Config struct {
	// PreferTextMatch makes the merchant resolver return the OCR-matched
	// substring instead of the filename-derived candidate when the
	// whole-word search hits. Off by default: the filename is curated by
	// the uploader, OCR lines are noisy.
	PreferTextMatch bool
}

// Parser applies the receipt heuristics to OCR text plus the source
// filename. It holds no per-call state; the same inputs always produce
// the same record.
type Parser struct {
	cfg    Config
	logger *slog.Logger
}

func NewParser(cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{cfg: cfg, logger: logger}
}

// Parse runs the three extractors independently over (text, filename)
// and assembles the result record. It never fails: missing signals
// resolve to the field defaults.
func (p *Parser) Parse(text, filename string) entity.ParsedReceipt {
	return entity.ParsedReceipt{
		PurchasedAt:  p.ExtractTimestamp(text, filename),
		MerchantName: p.ResolveMerchant(text, filename),
		TotalAmount:  p.ExtractTotal(text),
	}
}
