package invoice

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ContentTypeCSV is the media type of WriteLineItems output.
const ContentTypeCSV = "text/csv; charset=utf-8"

// LineItemHeader is the fixed CSV column order.
var LineItemHeader = []string{
	"booking_id",
	"completed_at",
	"base_amount_usd",
	"effective_percent",
	"commission_amount_usd",
}

// WriteLineItems writes the invoice lines as CSV. Timestamps are RFC 3339
// UTC and amounts use two decimals without grouping.
func WriteLineItems(w io.Writer, inv *Invoice) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LineItemHeader); err != nil {
		return fmt.Errorf("invoice: write csv header: %w", err)
	}
	for _, l := range inv.Lines {
		if err := cw.Write(lineCells(l)); err != nil {
			return fmt.Errorf("invoice: write csv row %s: %w", l.BookingID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// lineCells formats one line in LineItemHeader order. Document uses the
// same cells.
func lineCells(l Line) []string {
	return []string{
		l.BookingID,
		l.CompletedAt.UTC().Format(time.RFC3339),
		l.BaseAmount.FormatMajor(),
		l.EffectiveRate.Percent(),
		l.Commission.FormatMajor(),
	}
}

// Filename returns the artifact name for inv with the given extension,
// e.g. "INV-2025W07-3VQJHP41.csv".
func Filename(inv *Invoice, ext string) string {
	return inv.Number + "." + ext
}
