package analytics

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"github.com/ararat/reports/internal/domain"
)

// TrendWindow is the number of days averaged by the sales trend.
const TrendWindow = 7

// DailyBenefit is the estimated benefit of one day.
type DailyBenefit struct {
	Date             time.Time
	Total            decimal.Decimal
	EstimatedBenefit decimal.Decimal
	ChangePct        *float64
	BenefitChangePct *float64
	// Trend is the simple moving average of daily sales over TrendWindow
	// days, nil until enough days are available.
	Trend *float64
	// Movements is the stock movement amount recorded the same day.
	Movements decimal.Decimal
}

// BenefitReport holds the daily and per-shop benefit views.
type BenefitReport struct {
	Daily  []DailyBenefit
	ByShop []ShopSales
}

// Benefits estimates benefits per day and per shop. Movements are matched to
// sales days only; days with movements but no sales are not reported.
func (e *Engine) Benefits(ops []domain.Operation, movs []domain.StockMovement) BenefitReport {
	days := e.DailySales(ops)
	movedByDay := make(map[time.Time]decimal.Decimal, len(movs))
	for _, m := range movs {
		d := domain.Day(m.Date)
		movedByDay[d] = movedByDay[d].Add(m.Montant)
	}

	daily := make([]DailyBenefit, 0, len(days))
	totals := make([]float64, 0, len(days))
	var prevTotal, prevBenefit *decimal.Decimal
	for _, d := range days {
		total, benefit := d.Total, d.EstimatedBenefit
		daily = append(daily, DailyBenefit{
			Date:             d.Date,
			Total:            total,
			EstimatedBenefit: benefit,
			ChangePct:        pctChange(prevTotal, total),
			BenefitChangePct: pctChange(prevBenefit, benefit),
			Movements:        movedByDay[domain.Day(d.Date)],
		})
		prevTotal, prevBenefit = &total, &benefit
		f, _ := total.Float64()
		totals = append(totals, f)
	}

	for i, v := range movingAverage(totals, TrendWindow) {
		if !math.IsNaN(v) {
			avg := v
			daily[i].Trend = &avg
		}
	}

	return BenefitReport{
		Daily:  daily,
		ByShop: e.ShopSales(ops),
	}
}

// movingAverage returns the trailing simple moving average of values.
// Positions without a full window are NaN.
func movingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 || len(values) < window {
		return out
	}
	sma := talib.Sma(values, window)
	for i := window - 1; i < len(values); i++ {
		out[i] = sma[i]
	}
	return out
}
