package ingest

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ValidatePDF confirms the file is a structurally well-formed, openable
// PDF. Returns ok plus a human-readable reason when it is not. The
// extraction pipeline itself never re-validates structure; it only
// tolerates render failure.
func ValidatePDF(path string) (ok bool, reason string) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if p := recover(); p != nil {
			ok, reason = false, fmt.Sprint(p)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return false, err.Error()
	}
	defer func() { _ = f.Close() }()
	if r.NumPage() < 1 {
		return false, "document has no pages"
	}
	return true, ""
}

// MustValidatePDF is ValidatePDF with an error return for callers that
// treat an invalid document as failure.
func MustValidatePDF(path string) error {
	if ok, reason := ValidatePDF(path); !ok {
		return fmt.Errorf("invalid pdf: %s", reason)
	}
	return nil
}
