// Package catalog records every generated report in the local SQLite database.
package catalog

import (
	"errors"
	"time"

	"github.com/ararat/reports/internal/modules/analytics"
)

// ErrNotFound is returned when no catalog entry matches.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is one generated report.
type Entry struct {
	ID          string
	Filename    string
	ReportType  string
	ShopID      string
	StartDate   *time.Time
	EndDate     *time.Time
	SizeBytes   int64
	DownloadURL string
	Storage     string
	Remote      bool
	CreatedAt   time.Time
	Summary     *Snapshot
}

// Snapshot is the msgpack-encoded copy of a report's headline figures, also
// served as JSON by the report listing.
// Money values are kept as decimal strings.
type Snapshot struct {
	Operations       int    `json:"operations" msgpack:"operations"`
	Deposits         int    `json:"deposits" msgpack:"deposits"`
	Clients          int    `json:"clients" msgpack:"clients"`
	Movements        int    `json:"movements" msgpack:"movements"`
	SalesTotal       string `json:"salesTotal,omitempty" msgpack:"sales_total,omitempty"`
	EstimatedBenefit string `json:"estimatedBenefit,omitempty" msgpack:"estimated_benefit,omitempty"`
	DepositsTotal    string `json:"depositsTotal,omitempty" msgpack:"deposits_total,omitempty"`
	MovementsTotal   string `json:"movementsTotal,omitempty" msgpack:"movements_total,omitempty"`
	FirstDate        string `json:"firstDate,omitempty" msgpack:"first_date,omitempty"`
	LastDate         string `json:"lastDate,omitempty" msgpack:"last_date,omitempty"`
	ShopCount        int    `json:"shopCount,omitempty" msgpack:"shop_count,omitempty"`
}

// SnapshotOf copies the figures worth keeping from a summary.
func SnapshotOf(s analytics.Summary) *Snapshot {
	snap := &Snapshot{
		Operations: s.Operations,
		Deposits:   s.Deposits,
		Clients:    s.Clients,
		Movements:  s.Movements,
	}
	if s.SalesTotal != nil {
		snap.SalesTotal = s.SalesTotal.String()
	}
	if s.EstimatedBenefit != nil {
		snap.EstimatedBenefit = s.EstimatedBenefit.String()
	}
	if s.DepositsTotal != nil {
		snap.DepositsTotal = s.DepositsTotal.String()
	}
	if s.MovementsTotal != nil {
		snap.MovementsTotal = s.MovementsTotal.String()
	}
	if s.FirstDate != nil {
		snap.FirstDate = s.FirstDate.Format(dateLayout)
	}
	if s.LastDate != nil {
		snap.LastDate = s.LastDate.Format(dateLayout)
	}
	if s.ShopCount != nil {
		snap.ShopCount = *s.ShopCount
	}
	return snap
}
