package sql

import (
	"fmt"
	"strings"
)

type MysqlQueryProvider struct {
	Table      string
	Columns    []string
	Priorities []string
}

func (m MysqlQueryProvider) InsertSql() string {
	return fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)", m.Table, strings.Join(escapeColumns(m.Columns), ", "), questionMarks(len(m.Columns)))
}

func (m MysqlQueryProvider) PendingFetchSql() string {
	q := "SELECT %s FROM `%s` WHERE `processed_at` IS NULL ORDER BY %s ASC, `created_at` ASC, `id` ASC"

	return fmt.Sprintf(q, strings.Join(escapeColumns(m.Columns), ", "), m.Table, priorityCase("`operation_type`", m.Priorities))
}

func (m MysqlQueryProvider) MarkProcessedSql() string {
	return fmt.Sprintf("UPDATE `%s` SET `processed_at` = ?, `last_error` = NULL WHERE `id` = ? AND `processed_at` IS NULL", m.Table)
}

func (m MysqlQueryProvider) MarkRetrySql() string {
	q := "UPDATE `%s` SET `retry_count` = `retry_count` + 1, `last_error` = ? WHERE `id` = ? AND `processed_at` IS NULL AND `retry_count` < `max_retries`"

	return fmt.Sprintf(q, m.Table)
}

func (m MysqlQueryProvider) MarkTerminalSql() string {
	return fmt.Sprintf("UPDATE `%s` SET `last_error` = ?, `errored` = 1, `processed_at` = ? WHERE `id` = ? AND `processed_at` IS NULL", m.Table)
}

func (m MysqlQueryProvider) FailedFetchSql() string {
	return fmt.Sprintf("SELECT %s FROM `%s` WHERE `errored` = 1 ORDER BY `processed_at` DESC LIMIT ?", strings.Join(escapeColumns(m.Columns), ", "), m.Table)
}

func (m MysqlQueryProvider) DeleteProcessedSql() string {
	return fmt.Sprintf("DELETE FROM `%s` WHERE `processed_at` IS NOT NULL AND `processed_at` <= ?", m.Table)
}

func (m MysqlQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s` WHERE `processed_at` IS NULL", m.Table)
}

func (m MysqlQueryProvider) GetTotalSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s`", m.Table)
}

func (m MysqlQueryProvider) GetFailedSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s` WHERE `errored` = 1", m.Table)
}

func (m MysqlQueryProvider) PricingVersionSql() string {
	return fmt.Sprintf("SELECT COALESCE(MAX(`pricing_version`), 0) FROM `%s`", PricingTable)
}

func (m MysqlQueryProvider) PricingLatestSql() string {
	return fmt.Sprintf("SELECT %s FROM `%s` ORDER BY `pricing_version` DESC LIMIT 1", strings.Join(escapeColumns(PricingColumns), ", "), PricingTable)
}

func (m MysqlQueryProvider) PricingDeleteSql() string {
	return fmt.Sprintf("DELETE FROM `%s`", PricingTable)
}

func (m MysqlQueryProvider) PricingInsertSql() string {
	return fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)", PricingTable, strings.Join(escapeColumns(PricingColumns), ", "), questionMarks(len(PricingColumns)))
}

func (m MysqlQueryProvider) PdfInsertSql() string {
	return fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)", PdfTable, strings.Join(escapeColumns(PdfColumns), ", "), questionMarks(len(PdfColumns)))
}

func escapeColumns(columns []string) []string {
	var escaped []string
	for _, c := range columns {
		escaped = append(escaped, "`"+c+"`")
	}

	return escaped
}
