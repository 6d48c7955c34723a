package render

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Quotes are Brazilian-market documents: currency and dates follow pt-BR
// conventions regardless of server locale.
var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// Money formats a value as Brazilian reais ("R$ 1.234,56"). This is the
// only place monetary values are rounded.
func Money(v float64) string {
	return ptBR.Sprintf("R$ %.2f", v)
}

// Date formats a time as dd/mm/yyyy.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// ValidUntil derives the quote expiry: 30 days after creation.
func ValidUntil(createdAt time.Time) time.Time {
	return createdAt.AddDate(0, 0, 30)
}
