package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParser() *Parser {
	return NewParser(Config{}, nil)
}

func TestExtractTimestamp_DayFirstWinsOnAmbiguousToken(t *testing.T) {
	p := testParser()
	ts := p.ExtractTimestamp("Date: 03/04/2023 thank you", "scan.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.April, 3, 0, 0, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_MonthFirstWhenDayFirstImpossible(t *testing.T) {
	p := testParser()
	ts := p.ExtractTimestamp("printed 12-31-2023", "scan.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_TwoDigitYear(t *testing.T) {
	p := testParser()
	ts := p.ExtractTimestamp("3/4/24", "scan.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_MergesTimeToken(t *testing.T) {
	p := testParser()

	ts := p.ExtractTimestamp("03/04/2023 14:35", "scan.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.April, 3, 14, 35, 0, 0, time.UTC), *ts)

	ts = p.ExtractTimestamp("03/04/2023 2:35 PM", "scan.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.April, 3, 14, 35, 0, 0, time.UTC), *ts)

	ts = p.ExtractTimestamp("03/04/2023 11:05 AM", "scan.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.April, 3, 11, 5, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_InvalidTimeLeavesDateStanding(t *testing.T) {
	p := testParser()
	ts := p.ExtractTimestamp("03/04/2023 29:99", "scan.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.April, 3, 0, 0, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_FilenameFallback(t *testing.T) {
	p := testParser()
	ts := p.ExtractTimestamp("no date here", "receipt_20230715.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.July, 15, 0, 0, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_FilenameSkipsUnparseableRuns(t *testing.T) {
	p := testParser()
	ts := p.ExtractTimestamp("", "scan_99999999_20230715.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.July, 15, 0, 0, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_FilenameTimeMerge(t *testing.T) {
	// a time token in the text attaches even when the date came from
	// the filename
	p := testParser()
	ts := p.ExtractTimestamp("checkout at 9:30 AM", "lunch_20230715.pdf")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2023, time.July, 15, 9, 30, 0, 0, time.UTC), *ts)
}

func TestExtractTimestamp_NoSignalReturnsNil(t *testing.T) {
	p := testParser()
	assert.Nil(t, p.ExtractTimestamp("no dates anywhere", "scan.pdf"))
	assert.Nil(t, p.ExtractTimestamp("", ""))
	// a text token that parses under no layout falls through to the
	// filename, and an absent filename run yields nil
	assert.Nil(t, p.ExtractTimestamp("99/99/9999", "scan.pdf"))
}
