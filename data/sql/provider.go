package sql

import (
	"fmt"
	"strings"
)

const (
	PricingTable = "pricing_cache"
	PdfTable     = "pdfs"
)

var (
	PricingColumns = []string{"pricing_version", "last_updated", "cennik_json", "dodatki_json", "standard_json", "fetched_at"}
	PdfColumns     = []string{"id", "offer_id", "user_id", "client_name", "file_path", "file_name", "status", "error_message", "total_pln", "width_m", "length_m", "height_m", "area_m2", "variant_hali", "created_at"}
)

// priorityCase builds the ORDER BY expression that maps each operation type
// to its drain tier. Unlisted types fall through to the last tier.
func priorityCase(column string, priorities []string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)
	for i, p := range priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", strings.ReplaceAll(p, "'", "''"), i+1)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(priorities)+1)

	return b.String()
}

func questionMarks(n int) string {
	return strings.Trim(strings.Repeat("?, ", n), ", ")
}

func dollarPlaceholders(n int) string {
	var placeholders []string
	for i := 1; i <= n; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
	}

	return strings.Join(placeholders, ", ")
}
