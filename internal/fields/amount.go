package fields

import (
	"regexp"
	"strconv"
)

// Amount heuristic tiers, recorded on AmountCandidate.
const (
	TierDecimalToken = "decimal-token"
	TierGeneralToken = "general-token"
)

var (
	reDecimalToken = regexp.MustCompile(`\b\d+\.\d{2}\b`)
	reNumericToken = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// AmountCandidate is a numeric token with its parsed value and the
// heuristic tier that produced it.
type AmountCandidate struct {
	Raw   string
	Value float64
	Tier  string
}

// Plausible monetary range for tier-2 general tokens. Tier-1 decimal
// tokens are trusted as-is.
const (
	minPlausibleAmount = 0.01
	maxPlausibleAmount = 10000
)

// ExtractTotal recovers the total amount from the OCR text. Tier 1
// takes the maximum of all "digits, dot, exactly two digits" tokens:
// the total is conventionally the largest currency figure, and
// decimal-formatted tokens are the highest-confidence candidates.
// Tier 2 runs only when Tier 1 finds nothing: every numeric token is
// considered, after repairing OCR-dropped decimal points, and values
// outside the plausible monetary range are discarded. Default 0.0.
func (p *Parser) ExtractTotal(text string) float64 {
	if best, ok := maxCandidate(decimalCandidates(text)); ok {
		p.logger.Debug("fields.amount.parsed", "raw", best.Raw, "value", best.Value, "tier", best.Tier)
		return best.Value
	}
	if best, ok := maxCandidate(generalCandidates(text)); ok {
		p.logger.Debug("fields.amount.parsed", "raw", best.Raw, "value", best.Value, "tier", best.Tier)
		return best.Value
	}
	return 0.0
}

func decimalCandidates(text string) []AmountCandidate {
	var out []AmountCandidate
	for _, tok := range reDecimalToken.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		out = append(out, AmountCandidate{Raw: tok, Value: v, Tier: TierDecimalToken})
	}
	return out
}

func generalCandidates(text string) []AmountCandidate {
	var out []AmountCandidate
	for _, tok := range reNumericToken.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(normalizeAmountToken(tok), 64)
		if err != nil {
			continue
		}
		if v < minPlausibleAmount || v > maxPlausibleAmount {
			continue
		}
		out = append(out, AmountCandidate{Raw: tok, Value: v, Tier: TierGeneralToken})
	}
	return out
}

// normalizeAmountToken inserts a decimal point two digits from the end
// of a dot-less token longer than two digits, treating it as an
// OCR-dropped decimal point ("1250" -> "12.50").
func normalizeAmountToken(tok string) string {
	if len(tok) <= 2 {
		return tok
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] == '.' {
			return tok
		}
	}
	return tok[:len(tok)-2] + "." + tok[len(tok)-2:]
}

func maxCandidate(cands []AmountCandidate) (AmountCandidate, bool) {
	if len(cands) == 0 {
		return AmountCandidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Value > best.Value {
			best = c
		}
	}
	return best, true
}
