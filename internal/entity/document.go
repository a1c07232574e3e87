package entity

import "strings"

// SourceDocument is an immutable reference to a document handed to the
// pipeline. The filename feeds the fallback heuristics; it is the
// uploader's original name, not the on-disk path.
type SourceDocument struct {
	Path     string
	Filename string
}

// Extraction strategy tags recorded on ExtractedText.
const (
	StrategyRemotePDF   = "remote-pdf"
	StrategyRemoteImage = "remote-image"
	StrategyLocalOCR    = "local-ocr"
	StrategyNone        = "none"
)

// ExtractedText is the OCR acquisition result: the raw text plus the
// strategy that produced it. StrategyNone with empty text is the
// designated "no text available" sentinel, not an error.
type ExtractedText struct {
	Text     string
	Strategy string
}

// Empty reports whether the extraction yielded no usable text.
func (t ExtractedText) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}
