package extract

import (
	"context"

	"github.com/paperlyst/receipt-extractor/internal/entity"
)

// TextExtractor is Stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.SourceDocument) (entity.ExtractedText, error)
}

// FieldParser is Stage 2: text (+ filename hints) -> structured record.
type FieldParser interface {
	Parse(text, filename string) entity.ParsedReceipt
}
