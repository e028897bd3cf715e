package sql

import (
	"fmt"
	"strings"
)

type PostgresQueryProvider struct {
	Table      string
	Columns    []string
	Priorities []string
}

func (m PostgresQueryProvider) InsertSql() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", m.Table, strings.Join(m.Columns, ", "), dollarPlaceholders(len(m.Columns)))
}

func (m PostgresQueryProvider) PendingFetchSql() string {
	q := `SELECT %s FROM %s WHERE processed_at IS NULL ORDER BY %s ASC, created_at ASC, id ASC`

	return fmt.Sprintf(q, strings.Join(m.Columns, ", "), m.Table, priorityCase("operation_type", m.Priorities))
}

func (m PostgresQueryProvider) MarkProcessedSql() string {
	return fmt.Sprintf("UPDATE %s SET processed_at = $1, last_error = NULL WHERE id = $2 AND processed_at IS NULL", m.Table)
}

func (m PostgresQueryProvider) MarkRetrySql() string {
	q := `UPDATE %s SET retry_count = retry_count + 1, last_error = $1 WHERE id = $2 AND processed_at IS NULL AND retry_count < max_retries`

	return fmt.Sprintf(q, m.Table)
}

func (m PostgresQueryProvider) MarkTerminalSql() string {
	return fmt.Sprintf("UPDATE %s SET last_error = $1, errored = TRUE, processed_at = $2 WHERE id = $3 AND processed_at IS NULL", m.Table)
}

func (m PostgresQueryProvider) FailedFetchSql() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE errored = TRUE ORDER BY processed_at DESC LIMIT $1", strings.Join(m.Columns, ", "), m.Table)
}

func (m PostgresQueryProvider) DeleteProcessedSql() string {
	return fmt.Sprintf("DELETE FROM %s WHERE processed_at IS NOT NULL AND processed_at <= $1", m.Table)
}

func (m PostgresQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE processed_at IS NULL", m.Table)
}

func (m PostgresQueryProvider) GetTotalSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", m.Table)
}

func (m PostgresQueryProvider) GetFailedSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE errored = TRUE", m.Table)
}

func (m PostgresQueryProvider) PricingVersionSql() string {
	return fmt.Sprintf("SELECT COALESCE(MAX(pricing_version), 0) FROM %s", PricingTable)
}

func (m PostgresQueryProvider) PricingLatestSql() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY pricing_version DESC LIMIT 1", strings.Join(PricingColumns, ", "), PricingTable)
}

func (m PostgresQueryProvider) PricingDeleteSql() string {
	return fmt.Sprintf("DELETE FROM %s", PricingTable)
}

func (m PostgresQueryProvider) PricingInsertSql() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", PricingTable, strings.Join(PricingColumns, ", "), dollarPlaceholders(len(PricingColumns)))
}

func (m PostgresQueryProvider) PdfInsertSql() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", PdfTable, strings.Join(PdfColumns, ", "), dollarPlaceholders(len(PdfColumns)))
}
