// Package processors holds the pure computation stages of the ingestion
// pipeline: dedup fingerprinting and daily metrics recomputation.
package processors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/username/tradevault/src/models"
)

// fpSentinel stands in for absent exit fields so open and closed trades with
// otherwise identical fills never collide.
const fpSentinel = "-"

// Fingerprint computes the stable dedup key for a trade candidate scoped to
// an account. Fees and P&L are deliberately excluded: a corrected fee or P&L
// on an otherwise identical fill must update the existing row, not create a
// duplicate. Decimals are rendered fixed-point so "2.5" and "2.50" cells
// hash identically. The value is internal; it is never exposed to callers
// outside the pipeline.
func Fingerprint(c models.TradeCandidate, accountID int64) string {
	exitTime := fpSentinel
	if c.ExitTime != nil {
		exitTime = strconv.FormatInt(c.ExitTime.Unix(), 10)
	}
	exitPrice := fpSentinel
	if c.ExitPrice != nil {
		exitPrice = c.ExitPrice.StringFixed(8)
	}

	input := fmt.Sprintf("%d|%s|%s|%s|%d|%s|%s|%s",
		accountID,
		c.Symbol,
		c.Side,
		c.Quantity.StringFixed(8),
		c.EntryTime.Unix(),
		exitTime,
		c.EntryPrice.StringFixed(8),
		exitPrice,
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
