package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ararat/reports/internal/domain"
)

// PeriodSales is the sales performance of one period.
type PeriodSales struct {
	Period           string
	Total            decimal.Decimal
	Mean             *decimal.Decimal
	Count            int
	ShopCount        int
	ChangePct        *float64
	EstimatedBenefit decimal.Decimal
}

// DailySale is one row of the daily sales sheet.
type DailySale struct {
	Date             time.Time
	Total            decimal.Decimal
	ShopCount        int
	EstimatedBenefit decimal.Decimal
}

// ShopSales aggregates the operations of one shop.
type ShopSales struct {
	ShopID           string
	Total            decimal.Decimal
	Mean             *decimal.Decimal
	Count            int
	EstimatedBenefit decimal.Decimal
}

func operationTotal(o domain.Operation) decimal.Decimal { return o.TotalGeneral }
func operationShop(o domain.Operation) string           { return o.ShopID }

// SalesPerformance groups operations by period. Change is measured against
// the previous period in chronological order.
func (e *Engine) SalesPerformance(ops []domain.Operation, g Granularity) []PeriodSales {
	groups := groupBy(ops, func(o domain.Operation) string { return g.Key(o.Date) })

	out := make([]PeriodSales, 0, len(groups))
	var prev *decimal.Decimal
	for _, grp := range groups {
		total := sum(grp.items, operationTotal)
		out = append(out, PeriodSales{
			Period:           grp.key,
			Total:            total,
			Mean:             mean(total, len(grp.items)),
			Count:            len(grp.items),
			ShopCount:        distinct(grp.items, operationShop),
			ChangePct:        pctChange(prev, total),
			EstimatedBenefit: e.Benefit(total),
		})
		prev = &total
	}
	return out
}

// DailySales totals operations per calendar day.
func (e *Engine) DailySales(ops []domain.Operation) []DailySale {
	groups := groupBy(ops, func(o domain.Operation) string { return GranularityDay.Key(o.Date) })

	out := make([]DailySale, 0, len(groups))
	for _, grp := range groups {
		total := sum(grp.items, operationTotal)
		out = append(out, DailySale{
			Date:             domain.Day(grp.items[0].Date),
			Total:            total,
			ShopCount:        distinct(grp.items, operationShop),
			EstimatedBenefit: e.Benefit(total),
		})
	}
	return out
}

// ShopSales totals operations per shop, ordered by shop ID.
func (e *Engine) ShopSales(ops []domain.Operation) []ShopSales {
	groups := groupBy(ops, operationShop)

	out := make([]ShopSales, 0, len(groups))
	for _, grp := range groups {
		total := sum(grp.items, operationTotal)
		out = append(out, ShopSales{
			ShopID:           grp.key,
			Total:            total,
			Mean:             mean(total, len(grp.items)),
			Count:            len(grp.items),
			EstimatedBenefit: e.Benefit(total),
		})
	}
	return out
}
