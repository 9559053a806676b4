// Package export renders assembled export tables as delimited payloads.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"claimdesk/internal/report"
)

// Fixed 16-column export schema; the order is part of the wire contract.
var csvHeader = []string{
	"Claim ID", "Date", "Employee ID", "Employee Name", "Department",
	"Description", "Category", "Amount", "Currency", "Status",
	"Approved By", "Approved At", "Paid By", "Paid At",
	"Payment Reference", "Notes",
}

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
	stampLayout    = "2006-01-02_15-04"
)

// Filename builds the attachment name for a CSV export.
func Filename(now time.Time) string {
	return "claims_export_" + now.Format(stampLayout) + ".csv"
}

// WriteCSV renders the export table: the unquoted header row followed by
// one line per claim. Every data field is wrapped in double quotes
// regardless of content so delimiters inside values never collide;
// embedded quotes are doubled. encoding/csv quotes minimally, which would
// break the all-quoted convention downstream consumers parse against, so
// the quoting is done here directly.
func WriteCSV(w io.Writer, rows []report.ExportRow) error {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for _, row := range rows {
		lines = append(lines, quoteLine(Fields(row)))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

// Fields flattens one export row into the 16-column schema. Unset values
// render as empty strings, never a textual null.
func Fields(r report.ExportRow) []string {
	return []string{
		r.ClaimID,
		r.Date.Format(dateLayout),
		r.EmployeeID,
		r.EmployeeName,
		r.Department,
		r.Description,
		r.Category,
		FormatAmount(r.AmountCents),
		r.Currency,
		string(r.Status),
		r.ApprovedByName,
		formatStamp(r.ApprovedAt),
		r.PaidByName,
		formatStamp(r.PaidAt),
		r.PaymentReference,
		r.Notes,
	}
}

// FormatAmount renders integer cents as a decimal amount, e.g. 10050 ->
// "100.50".
func FormatAmount(cents int64) string {
	neg := ""
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", neg, cents/100, cents%100)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateTimeLayout)
}

func quoteLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
