// Package reports resolves report requests into extraction windows and runs
// the extract, aggregate, render and publish pipeline.
package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/modules/analytics"
)

// ReportType selects the window policy of a report.
type ReportType string

const (
	TypeDaily   ReportType = "daily"
	TypeMonthly ReportType = "monthly"
	TypeYearly  ReportType = "yearly"
	TypeCustom  ReportType = "custom"
)

var (
	// ErrInvalidReportType is returned for unknown report types.
	ErrInvalidReportType = errors.New("invalid report type")
	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidRange is returned when the start date is after the end date.
	ErrInvalidRange = errors.New("start date is after end date")
	// ErrRender is returned when the workbook could not be produced.
	ErrRender = errors.New("report rendering failed")
)

// ParseReportType validates a report type. An empty value means custom.
func ParseReportType(s string) (ReportType, error) {
	switch t := ReportType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeCustom, nil
	case TypeDaily, TypeMonthly, TypeYearly, TypeCustom:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidReportType, s)
	}
}

// ParseDate parses an optional YYYY-MM-DD date. Full ISO timestamps are
// accepted and truncated to their UTC day. An empty value yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d := domain.Day(t.UTC())
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseMonth parses YYYY-MM into the first and last day of that month.
func ParseMonth(s string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	start, end := monthBounds(t)
	return start, end, nil
}

// ResolveWindow turns a report type and optional explicit dates into the
// extraction window, relative to now.
//
//	daily   -> [today, today], explicit dates ignored
//	monthly -> [start or first of month, end or today]
//	yearly  -> [start or Jan 1, end or today]
//	custom  -> explicit dates as given; none means no date filter
func ResolveWindow(t ReportType, start, end *time.Time, now time.Time) domain.Window {
	today := domain.Day(now.UTC())

	switch t {
	case TypeDaily:
		return domain.Window{Start: ptr(today), End: ptr(today)}
	case TypeMonthly:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return domain.Window{Start: orDay(start, first), End: orDay(end, today)}
	case TypeYearly:
		jan1 := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return domain.Window{Start: orDay(start, jan1), End: orDay(end, today)}
	default:
		return domain.Window{Start: dayPtr(start), End: dayPtr(end)}
	}
}

// ViewSet describes which aggregations feed the workbook.
type ViewSet struct {
	// Granularity buckets the sales performance sheet.
	Granularity analytics.Granularity
	// Restrict, when set, filters the extracted datasets in memory before aggregation.
	Restrict *domain.Window
	// Analysis adds the trend sheets after the fixed report sheets.
	Analysis bool
}

// SelectViews picks the aggregation set for a report type and its resolved window.
// Monthly reports are restricted to the calendar month of their start date.
func SelectViews(t ReportType, w domain.Window) ViewSet {
	switch t {
	case TypeDaily:
		return ViewSet{Granularity: analytics.GranularityDay}
	case TypeMonthly:
		v := ViewSet{Granularity: analytics.GranularityDay, Analysis: true}
		if w.Start != nil {
			start, end := monthBounds(*w.Start)
			v.Restrict = &domain.Window{Start: &start, End: &end}
		}
		return v
	case TypeYearly:
		return ViewSet{Granularity: analytics.GranularityMonth, Analysis: true}
	default:
		return ViewSet{Granularity: granularityFor(w), Analysis: true}
	}
}

// granularityFor picks a sales bucket that keeps the number of periods readable.
func granularityFor(w domain.Window) analytics.Granularity {
	if w.Start == nil || w.End == nil {
		return analytics.GranularityMonth
	}
	days := w.End.Sub(*w.Start).Hours() / 24
	switch {
	case days <= 31:
		return analytics.GranularityDay
	case days <= 180:
		return analytics.GranularityWeek
	case days <= 3*366:
		return analytics.GranularityMonth
	default:
		return analytics.GranularityYear
	}
}

// FileName names the workbook of a report generated at now.
func FileName(t ReportType, w domain.Window, now time.Time) string {
	if t == TypeMonthly {
		month := now.UTC()
		if w.Start != nil {
			month = *w.Start
		}
		return fmt.Sprintf("report_monthly_%s.xlsx", month.Format("2006-01"))
	}
	return fmt.Sprintf("report_%s_%s.xlsx", t, now.UTC().Format("20060102_150405"))
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

func ptr(t time.Time) *time.Time { return &t }

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return ptr(domain.Day(*t))
}

func orDay(t *time.Time, fallback time.Time) *time.Time {
	if t == nil {
		return ptr(fallback)
	}
	return dayPtr(t)
}
