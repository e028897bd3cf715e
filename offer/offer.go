package offer

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

var (
	now = time.Now

	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
)

// FormatOfferNumberForFile turns an offer number such as PLX-E0001/2026 into
// a string that is safe to use in a file name.
func FormatOfferNumberForFile(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return fmt.Sprintf("PLX-X0001-%d", now().Year())
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return '-'
		}
		return r
	}, number)
}

func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// TemporaryNumber is the number given to an offer created without a backend
// connection. The backend replaces it when the offer is synced.
func TemporaryNumber(deviceID string, seq int, at time.Time) string {
	prefix := strings.ToUpper(deviceID)
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}

	return fmt.Sprintf("TMP-%s-%04d/%d", prefix, seq, at.Year())
}

// PdfFileName is the file name used for a generated offer document.
func PdfFileName(number string) string {
	return "PLANLUX-Oferta-" + FormatOfferNumberForFile(number) + ".pdf"
}
