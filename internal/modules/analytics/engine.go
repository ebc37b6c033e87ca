// Package analytics computes the grouped metrics behind every report sheet.
//
// All functions are pure: they take ordered datasets and return new values.
// Empty inputs yield empty (non-nil) results. Means and percent changes over
// zero-count or zero-valued groups are nil rather than NaN or Inf.
package analytics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMargin is the estimated benefit margin applied to sales.
var DefaultMargin = decimal.RequireFromString("0.15")

var hundred = decimal.NewFromInt(100)

// Engine holds the parameters shared by all aggregations.
type Engine struct {
	Margin decimal.Decimal
}

// NewEngine creates an engine. A zero or negative margin falls back to DefaultMargin.
func NewEngine(margin decimal.Decimal) *Engine {
	if !margin.IsPositive() {
		margin = DefaultMargin
	}
	return &Engine{Margin: margin}
}

// Benefit returns the estimated benefit of a sales total.
func (e *Engine) Benefit(total decimal.Decimal) decimal.Decimal {
	return total.Mul(e.Margin)
}

// Granularity is the period used to bucket sales.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// ParseGranularity validates a period name. An empty name means month.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GranularityMonth, nil
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return g, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Key returns the period label of t. Labels sort chronologically as strings.
func (g Granularity) Key(t time.Time) string {
	t = t.UTC()
	switch g {
	case GranularityDay:
		return t.Format("2006-01-02")
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case GranularityYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

// group is one bucket of records sharing a key.
type group[T any] struct {
	key   string
	items []T
}

// groupBy buckets records by key and returns the buckets in ascending key order.
// Records keep their input order inside a bucket.
func groupBy[T any](records []T, key func(T) string) []group[T] {
	index := make(map[string]int)
	var groups []group[T]
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group[T]{key: k})
		}
		groups[i].items = append(groups[i].items, r)
	}
	slices.SortFunc(groups, func(a, b group[T]) int {
		return strings.Compare(a.key, b.key)
	})
	return groups
}

func sum[T any](items []T, value func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(value(it))
	}
	return total
}

// mean returns nil for an empty group.
func mean(total decimal.Decimal, count int) *decimal.Decimal {
	if count == 0 {
		return nil
	}
	m := total.Div(decimal.NewFromInt(int64(count)))
	return &m
}

func distinct[T any](items []T, key func(T) string) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[key(it)] = struct{}{}
	}
	return len(seen)
}

// pctChange returns (cur-prev)/prev*100, or nil when there is no previous value or it is zero.
func pctChange(prev *decimal.Decimal, cur decimal.Decimal) *float64 {
	if prev == nil || prev.IsZero() {
		return nil
	}
	v, _ := cur.Sub(*prev).Div(*prev).Mul(hundred).Float64()
	return &v
}

// daysBetween counts whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
