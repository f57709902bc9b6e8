package report

import "time"

// GenerateBatchNumber 生成批号 LOT.YYYYMMDD.HHMM（使用 t 所在时区）
func GenerateBatchNumber(t time.Time) string {
	return "LOT." + t.Format("20060102.1504")
}

// FormatIssueDate 签发日期（pt-BR 格式 DD/MM/YYYY）
func FormatIssueDate(t time.Time) string {
	return t.Format("02/01/2006")
}
