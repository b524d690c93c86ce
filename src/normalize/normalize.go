// Package normalize converts raw string cells from untrusted sources into
// typed values. All functions are pure.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradevault/src/models"
)

var numberCleaner = strings.NewReplacer(
	"$", "", "€", "", "£", "", ",", "", " ", "", " ", "",
)

// Number parses a money/quantity cell. Currency symbols and thousands
// separators are stripped first. A non-numeric cell yields zero rather than
// an error so a single bad cell cannot abort a whole batch; an empty cell
// yields ok=false.
func Number(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	s = numberCleaner.Replace(s)
	// Broker exports write negatives as (1.50).
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, true
	}
	return d, true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
	"02-01-2006",
}

// Date parses a timestamp cell against the known broker layouts, or a unix
// epoch in seconds or milliseconds. Unparseable input yields ok=false, which
// upstream treats as a hard row failure when the field is mandatory.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		if epoch > 1e12 {
			return time.UnixMilli(epoch).UTC(), true
		}
		return time.Unix(epoch, 0).UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Side maps the many spellings of trade direction onto the canonical enum.
// Anything unrecognized returns "" and is rejected by the row parser; the
// upstream system silently defaulted these to long, which hid bad data.
func Side(raw string) models.Side {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long":
		return models.SideLong
	case "sell", "short":
		return models.SideShort
	default:
		return ""
	}
}

// Symbol uppercases and trims a ticker cell. No contract-root mapping is
// attempted.
func Symbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
