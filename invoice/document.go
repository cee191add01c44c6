package invoice

import "time"

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate -f document.templ

// ContentTypeHTML is the media type of Document output.
const ContentTypeHTML = "text/html; charset=utf-8"

// Remittance carries the payee details printed on a document.
type Remittance struct {
	Payee        string
	Instructions string
}

// DefaultRemittance is used when the caller supplies no payee details.
var DefaultRemittance = Remittance{
	Payee:        "MediFly Commissions",
	Instructions: "Reference the invoice number on your transfer.",
}

const dateLayout = "Mon 2 Jan 2006"

func formatDate(t time.Time) string { return t.UTC().Format(dateLayout) }

func periodLabel(inv *Invoice) string {
	return inv.Week.Start().Format(dateLayout) + " - " + inv.Week.LastDay().Format(dateLayout)
}

func providerLabel(inv *Invoice) string {
	if inv.ProviderName != "" {
		return inv.ProviderName
	}
	return inv.ProviderID.String()
}
