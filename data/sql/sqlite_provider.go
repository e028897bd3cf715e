package sql

import (
	"fmt"
	"strings"
)

type SqliteQueryProvider struct {
	Table      string
	Columns    []string
	Priorities []string
}

func (s SqliteQueryProvider) InsertSql() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.Table, strings.Join(s.Columns, ", "), questionMarks(len(s.Columns)))
}

func (s SqliteQueryProvider) PendingFetchSql() string {
	q := `SELECT %s FROM %s WHERE processed_at IS NULL ORDER BY %s ASC, created_at ASC, id ASC`

	return fmt.Sprintf(q, strings.Join(s.Columns, ", "), s.Table, priorityCase("operation_type", s.Priorities))
}

func (s SqliteQueryProvider) MarkProcessedSql() string {
	return fmt.Sprintf("UPDATE %s SET processed_at = ?, last_error = NULL WHERE id = ? AND processed_at IS NULL", s.Table)
}

func (s SqliteQueryProvider) MarkRetrySql() string {
	q := `UPDATE %s SET retry_count = retry_count + 1, last_error = ? WHERE id = ? AND processed_at IS NULL AND retry_count < max_retries`

	return fmt.Sprintf(q, s.Table)
}

func (s SqliteQueryProvider) MarkTerminalSql() string {
	return fmt.Sprintf("UPDATE %s SET last_error = ?, errored = 1, processed_at = ? WHERE id = ? AND processed_at IS NULL", s.Table)
}

func (s SqliteQueryProvider) FailedFetchSql() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE errored = 1 ORDER BY processed_at DESC LIMIT ?", strings.Join(s.Columns, ", "), s.Table)
}

func (s SqliteQueryProvider) DeleteProcessedSql() string {
	return fmt.Sprintf("DELETE FROM %s WHERE processed_at IS NOT NULL AND processed_at <= ?", s.Table)
}

func (s SqliteQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE processed_at IS NULL", s.Table)
}

func (s SqliteQueryProvider) GetTotalSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", s.Table)
}

func (s SqliteQueryProvider) GetFailedSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE errored = 1", s.Table)
}

func (s SqliteQueryProvider) PricingVersionSql() string {
	return fmt.Sprintf("SELECT COALESCE(MAX(pricing_version), 0) FROM %s", PricingTable)
}

func (s SqliteQueryProvider) PricingLatestSql() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY pricing_version DESC LIMIT 1", strings.Join(PricingColumns, ", "), PricingTable)
}

func (s SqliteQueryProvider) PricingDeleteSql() string {
	return fmt.Sprintf("DELETE FROM %s", PricingTable)
}

func (s SqliteQueryProvider) PricingInsertSql() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", PricingTable, strings.Join(PricingColumns, ", "), questionMarks(len(PricingColumns)))
}

func (s SqliteQueryProvider) PdfInsertSql() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", PdfTable, strings.Join(PdfColumns, ", "), questionMarks(len(PdfColumns)))
}
