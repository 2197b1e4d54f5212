package extract

import "github.com/shopspring/decimal"

// toMinorUnits converts a decimal major-unit amount (euros) to integer
// minor units (cents), rounding half away from zero. Document amounts are
// always treated as positive magnitudes; sign conventions differ between
// suppliers and are meaningless on an incoming invoice.
func toMinorUnits(d *decimal.Decimal) int64 {
	if d == nil {
		return 0
	}
	return d.Abs().Shift(2).Round(0).IntPart()
}
