package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"claimdesk/internal/export"
	"claimdesk/internal/log"
	"claimdesk/internal/report"
)

const exportDateLayout = "2006-01-02"

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	rep, err := s.gen.Summary(ctx, actorFromContext(r.Context()))
	if err != nil {
		writeServerError(r.Context(), w, s.logger, log.OpSummary, err)
		return
	}
	writeData(w, rep)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, month := s.yearMonthParams(r)

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	rep, err := s.gen.Monthly(ctx, actorFromContext(r.Context()), year, month)
	if err != nil {
		writeServerError(r.Context(), w, s.logger, log.OpMonthly, err)
		return
	}
	writeData(w, rep)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	filter := exportFilter(r)

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	rows, err := s.gen.Export(ctx, actorFromContext(r.Context()), filter, format)
	if err != nil {
		writeServerError(r.Context(), w, s.logger, log.OpExport, err)
		return
	}

	if format == "json" {
		if rows == nil {
			rows = []report.ExportRow{}
		}
		writeData(w, rows)
		return
	}

	// Anything that is not json renders as CSV.
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now())+`"`)
	if err := export.WriteCSV(w, rows); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV write failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
	}
}

// yearMonthParams reads year and month from the query string. Absent,
// non-numeric, or out-of-range values fall back to the current period.
func (s *Server) yearMonthParams(r *http.Request) (int, int) {
	now := s.now()
	year := now.Year()
	month := int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month
}

// exportFilter parses the optional startDate/endDate range. The end date is
// inclusive, so the filter's exclusive bound moves to the next day.
// Unparsable values are ignored.
func exportFilter(r *http.Request) report.ClaimFilter {
	var f report.ClaimFilter
	if v := strings.TrimSpace(r.URL.Query().Get("startDate")); v != "" {
		if t, err := time.Parse(exportDateLayout, v); err == nil {
			f.From = t
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("endDate")); v != "" {
		if t, err := time.Parse(exportDateLayout, v); err == nil {
			f.To = t.AddDate(0, 0, 1)
		}
	}
	return f
}
