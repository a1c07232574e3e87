package fields

import (
	"regexp"
	"strings"
	"time"
)

var (
	reDateToken = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)
	reTimeToken = regexp.MustCompile(`\b(\d{1,2}:\d{2})(?:\s?([AP]M))?\b`)
	reYMDRun    = regexp.MustCompile(`\d{8}`)
)

// dateLayouts is the ordered candidate list: day-first before
// month-first, 4-digit year before 2-digit, both separators. First
// successful parse wins. Day/month ambiguity is unresolvable from the
// text alone, so the ordering is a deliberate tie-break.
var dateLayouts = []string{
	"2/1/2006", "2-1-2006",
	"1/2/2006", "1-2-2006",
	"2/1/06", "2-1-06",
	"1/2/06", "1-2-06",
}

// DateCandidate is a matched date substring, an optional matched time
// substring and the layout that parsed the date.
type DateCandidate struct {
	Date   string
	Time   string
	AMPM   string
	Layout string
}

// ExtractTimestamp recovers a purchase timestamp from the OCR text or,
// failing that, from an 8-digit YYYYMMDD run in the filename. A time
// token found in the text is merged into either source. Returns nil
// when no parseable date exists; never an error.
func (p *Parser) ExtractTimestamp(text, filename string) *time.Time {
	cand := findDateCandidate(text)

	var parsed time.Time
	var ok bool
	if cand.Date != "" {
		parsed, ok = parseDateToken(cand.Date, &cand)
	}
	if !ok {
		parsed, ok = parseFilenameDate(filename)
		if ok {
			cand.Layout = "20060102"
		}
	}
	if !ok {
		return nil
	}

	if cand.Time != "" {
		if t, terr := parseTimeToken(cand.Time, cand.AMPM); terr == nil {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
				t.Hour(), t.Minute(), 0, 0, parsed.Location())
		}
		// a time-parse miss leaves the date-only result standing
	}

	p.logger.Debug("fields.date.parsed",
		"token", cand.Date, "time", cand.Time, "layout", cand.Layout)
	return &parsed
}

func findDateCandidate(text string) DateCandidate {
	var cand DateCandidate
	if m := reDateToken.FindStringSubmatch(text); m != nil {
		cand.Date = m[1]
	}
	if m := reTimeToken.FindStringSubmatch(text); m != nil {
		cand.Time = m[1]
		cand.AMPM = m[2]
	}
	return cand
}

func parseDateToken(token string, cand *DateCandidate) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, token, time.UTC); err == nil {
			cand.Layout = layout
			return t, true
		}
	}
	return time.Time{}, false
}

// parseFilenameDate finds the first 8-digit run in the filename that
// parses as YYYYMMDD.
func parseFilenameDate(filename string) (time.Time, bool) {
	for _, run := range reYMDRun.FindAllString(filename, -1) {
		if t, err := time.ParseInLocation("20060102", run, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimeToken(hhmm, ampm string) (time.Time, error) {
	if ampm != "" {
		return time.Parse("3:04 PM", hhmm+" "+strings.ToUpper(ampm))
	}
	return time.Parse("15:04", hhmm)
}
