package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/modules/analytics"
)

var fixedNow = time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func formatWindow(w domain.Window) [2]string {
	return [2]string{formatDay(w.Start), formatDay(w.End)}
}

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name       string
		typ        ReportType
		start, end *time.Time
		want       [2]string
	}{
		{"daily is today", TypeDaily, nil, nil, [2]string{"2024-03-15", "2024-03-15"}},
		{"daily ignores explicit dates", TypeDaily, day("2023-01-01"), day("2023-02-01"), [2]string{"2024-03-15", "2024-03-15"}},
		{"monthly defaults to month to date", TypeMonthly, nil, nil, [2]string{"2024-03-01", "2024-03-15"}},
		{"monthly honors explicit start", TypeMonthly, day("2024-02-01"), day("2024-02-29"), [2]string{"2024-02-01", "2024-02-29"}},
		{"yearly defaults to year to date", TypeYearly, nil, nil, [2]string{"2024-01-01", "2024-03-15"}},
		{"yearly honors explicit dates", TypeYearly, day("2023-01-01"), day("2023-12-31"), [2]string{"2023-01-01", "2023-12-31"}},
		{"custom without dates is unbounded", TypeCustom, nil, nil, [2]string{"open", "open"}},
		{"custom open start", TypeCustom, nil, day("2024-02-10"), [2]string{"open", "2024-02-10"}},
		{"custom explicit", TypeCustom, day("2024-01-05"), day("2024-02-10"), [2]string{"2024-01-05", "2024-02-10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ResolveWindow(tt.typ, tt.start, tt.end, fixedNow)
			assert.Equal(t, tt.want, formatWindow(w))
		})
	}
}

func TestResolveWindow_TruncatesToDay(t *testing.T) {
	start := time.Date(2024, 1, 5, 17, 45, 0, 0, time.UTC)
	w := ResolveWindow(TypeCustom, &start, nil, fixedNow)
	require.NotNil(t, w.Start)
	assert.Equal(t, *day("2024-01-05"), *w.Start)
	assert.Equal(t, 17, start.Hour(), "caller value is not mutated")
}

func TestSelectViews(t *testing.T) {
	daily := SelectViews(TypeDaily, ResolveWindow(TypeDaily, nil, nil, fixedNow))
	assert.Equal(t, analytics.GranularityDay, daily.Granularity)
	assert.False(t, daily.Analysis)
	assert.Nil(t, daily.Restrict)

	monthly := SelectViews(TypeMonthly, domain.Window{Start: day("2024-02-10"), End: day("2024-03-20")})
	assert.True(t, monthly.Analysis)
	require.NotNil(t, monthly.Restrict)
	assert.Equal(t, [2]string{"2024-02-01", "2024-02-29"}, formatWindow(*monthly.Restrict))

	yearly := SelectViews(TypeYearly, ResolveWindow(TypeYearly, nil, nil, fixedNow))
	assert.Equal(t, analytics.GranularityMonth, yearly.Granularity)
	assert.True(t, yearly.Analysis)

	tests := []struct {
		name string
		w    domain.Window
		want analytics.Granularity
	}{
		{"unbounded", domain.Window{}, analytics.GranularityMonth},
		{"two weeks", domain.Window{Start: day("2024-03-01"), End: day("2024-03-14")}, analytics.GranularityDay},
		{"quarter", domain.Window{Start: day("2024-01-01"), End: day("2024-03-31")}, analytics.GranularityWeek},
		{"two years", domain.Window{Start: day("2022-01-01"), End: day("2023-12-31")}, analytics.GranularityMonth},
		{"decade", domain.Window{Start: day("2014-01-01"), End: day("2023-12-31")}, analytics.GranularityYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectViews(TypeCustom, tt.w).Granularity)
		})
	}
}

func TestFileName(t *testing.T) {
	w := domain.Window{Start: day("2024-02-01"), End: day("2024-02-29")}

	assert.Equal(t, "report_monthly_2024-02.xlsx", FileName(TypeMonthly, w, fixedNow))
	assert.Equal(t, "report_daily_20240315_143005.xlsx", FileName(TypeDaily, w, fixedNow))
	assert.Equal(t, "report_custom_20240315_143005.xlsx", FileName(TypeCustom, domain.Window{}, fixedNow))
	assert.Equal(t, "report_monthly_2024-03.xlsx", FileName(TypeMonthly, domain.Window{}, fixedNow))
}

func TestParseReportType(t *testing.T) {
	for in, want := range map[string]ReportType{
		"":         TypeCustom,
		"daily":    TypeDaily,
		" Monthly": TypeMonthly,
		"YEARLY":   TypeYearly,
		"custom":   TypeCustom,
	} {
		got, err := ParseReportType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseReportType("weekly")
	assert.ErrorIs(t, err, ErrInvalidReportType)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, *day("2024-03-15"), *got)

	got, err = ParseDate("2024-03-15T22:10:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, *day("2024-03-15"), *got)

	got, err = ParseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("15/03/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseMonth(t *testing.T) {
	start, end, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, *day("2024-02-01"), start)
	assert.Equal(t, *day("2024-02-29"), end)

	_, end, err = ParseMonth("2023-12")
	require.NoError(t, err)
	assert.Equal(t, *day("2023-12-31"), end)

	_, _, err = ParseMonth("2024-13")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
