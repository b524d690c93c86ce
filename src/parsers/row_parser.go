package parsers

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/normalize"
)

// RowError is a non-fatal, per-row parse failure. It carries the raw record
// for diagnostics; the batch continues with the next row.
type RowError struct {
	Reason string
	Record map[string]string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row skipped: %s (record: %v)", e.Reason, e.Record)
}

// ParseRow applies a column mapping to one raw record and produces a trade
// candidate. Symbol, side, quantity, entry price and entry time are
// mandatory; if any of them is missing or unusable a *RowError is returned.
// Optional fields are best effort and their absence is never a failure.
func ParseRow(record map[string]string, spec models.MappingSpec) (models.TradeCandidate, error) {
	fail := func(reason string) (models.TradeCandidate, error) {
		return models.TradeCandidate{}, &RowError{Reason: reason, Record: record}
	}

	symbol := normalize.Symbol(record[spec.Symbol])
	if symbol == "" {
		return fail("missing symbol")
	}

	side := normalize.Side(record[spec.Side])
	if side == "" {
		return fail(fmt.Sprintf("unrecognized side %q", record[spec.Side]))
	}

	qty, ok := normalize.Number(record[spec.Quantity])
	if !ok || !qty.IsPositive() {
		return fail(fmt.Sprintf("quantity %q is not a positive number", record[spec.Quantity]))
	}

	entryPrice, ok := normalize.Number(record[spec.EntryPrice])
	if !ok {
		return fail("missing entry price")
	}

	entryTime, ok := normalize.Date(record[spec.EntryTime])
	if !ok {
		return fail(fmt.Sprintf("unparseable entry time %q", record[spec.EntryTime]))
	}

	candidate := models.TradeCandidate{
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: entryPrice,
		EntryTime:  entryTime,
		Fees:       decimal.Zero,
	}

	if spec.ExitPrice != "" {
		if px, ok := normalize.Number(record[spec.ExitPrice]); ok {
			candidate.ExitPrice = &px
		}
	}
	if spec.ExitTime != "" {
		if t, ok := normalize.Date(record[spec.ExitTime]); ok {
			candidate.ExitTime = &t
		}
	}
	if spec.Fees != "" {
		if fees, ok := normalize.Number(record[spec.Fees]); ok {
			candidate.Fees = fees.Abs()
		}
	}
	if spec.PnL != "" {
		if pnl, ok := normalize.Number(record[spec.PnL]); ok {
			candidate.PnL = &pnl
		}
	}
	if spec.OrderID != "" {
		candidate.OrderID = record[spec.OrderID]
	}

	return candidate, nil
}
