package fields

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// UnknownMerchant is the fallback when the filename has no usable stem.
const UnknownMerchant = "Unknown"

// ResolveMerchant derives a merchant candidate from the filename (stem
// up to the first underscore), confirms it with a case-insensitive
// whole-word search in the OCR text, and returns the candidate with
// each word capitalized. The text search is a confidence signal only:
// the filename form wins even on a match, unless PreferTextMatch is set,
// in which case the matched substring (with its OCR casing) is returned.
// An empty candidate resolves to UnknownMerchant.
func (p *Parser) ResolveMerchant(text, filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(stem, "_"); i >= 0 {
		stem = stem[:i]
	}
	cand := strings.TrimSpace(stem)
	if cand == "" {
		return UnknownMerchant
	}

	if text != "" {
		if match := wholeWordMatch(text, cand); match != "" {
			p.logger.Debug("fields.merchant.text_match", "candidate", cand, "matched", match)
			if p.cfg.PreferTextMatch {
				return match
			}
		}
	}
	return capitalizeWords(cand)
}

func wholeWordMatch(text, cand string) string {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(cand) + `\b`)
	if err != nil {
		return ""
	}
	return re.FindString(text)
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
