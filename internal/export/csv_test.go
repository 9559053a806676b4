package export

import (
	"strings"
	"testing"
	"time"

	"claimdesk/internal/core"
	"claimdesk/internal/report"
)

func sampleRow() report.ExportRow {
	approved := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	return report.ExportRow{
		ClaimID:          "c-1",
		Date:             time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		EmployeeID:       "E002",
		EmployeeName:     "Bob",
		Department:       "Sales",
		Description:      `Client "kickoff" dinner`,
		Category:         "meals",
		AmountCents:      10050,
		Currency:         "USD",
		Status:           core.StatusApproved,
		ApprovedByName:   "Alice",
		ApprovedAt:       &approved,
		PaymentReference: "",
		Notes:            "receipt attached",
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	if got, want := Filename(now), "claims_export_2024-03-15_10-30.csv"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{10050, "100.50"},
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{-2550, "-25.50"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.cents); got != tt.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestFields_SixteenColumns(t *testing.T) {
	row := sampleRow()
	fields := Fields(row)

	if len(fields) != 16 {
		t.Fatalf("field count = %d, want 16", len(fields))
	}
	if len(csvHeader) != 16 {
		t.Fatalf("header count = %d, want 16", len(csvHeader))
	}

	want := []string{
		"c-1",
		"02/03/2024",
		"E002",
		"Bob",
		"Sales",
		`Client "kickoff" dinner`,
		"meals",
		"100.50",
		"USD",
		"approved",
		"Alice",
		"05/03/2024 14:30",
		"", // paid by
		"", // paid at
		"", // payment reference
		"receipt attached",
	}
	for i, w := range want {
		if fields[i] != w {
			t.Errorf("field %d (%s) = %q, want %q", i, csvHeader[i], fields[i], w)
		}
	}
}

func TestWriteCSV_AllFieldsQuoted(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, []report.ExportRow{sampleRow()}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(sb.String(), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count = %d, want 2 (header + row)", len(lines))
	}

	// The header row carries no quotes; only data fields are quoted.
	if lines[0] != strings.Join(csvHeader, ",") {
		t.Errorf("header = %q, want unquoted %q", lines[0], strings.Join(csvHeader, ","))
	}

	fields := strings.Split(lines[1], `","`)
	if len(fields) != 16 {
		t.Fatalf("data row splits into %d quoted fields, want 16: %q", len(fields), lines[1])
	}
	if !strings.HasPrefix(lines[1], `"`) || !strings.HasSuffix(lines[1], `"`) {
		t.Errorf("data row not fully quoted: %q", lines[1])
	}

	// Numbers are quoted too.
	if !strings.Contains(lines[1], `"100.50"`) {
		t.Errorf("amount not quoted: %q", lines[1])
	}
	// Embedded quotes are doubled inside the quoted field.
	if !strings.Contains(lines[1], `"Client ""kickoff"" dinner"`) {
		t.Errorf("embedded quotes not doubled: %q", lines[1])
	}
	// Empty values render as "" rather than a literal null.
	if strings.Contains(lines[1], "null") {
		t.Errorf("unexpected null in output: %q", lines[1])
	}
}

func TestWriteCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	out := sb.String()
	if strings.Contains(out, "\n") {
		t.Errorf("expected single header line, got %q", out)
	}
	if !strings.HasPrefix(out, "Claim ID,Date,Employee ID") {
		t.Errorf("unexpected header: %q", out)
	}
}

func TestWriteCSV_FieldWithCommaStaysIntact(t *testing.T) {
	row := sampleRow()
	row.Description = "dinner, drinks, taxi"

	var sb strings.Builder
	if err := WriteCSV(&sb, []report.ExportRow{row}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if !strings.Contains(sb.String(), `"dinner, drinks, taxi"`) {
		t.Errorf("comma-bearing field mangled: %q", sb.String())
	}
}
