package analytics

import (
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/ararat/reports/internal/domain"
)

// Summary holds the headline figures of a report. Pointer fields are nil
// when the dataset they derive from is empty.
type Summary struct {
	Operations int
	Deposits   int
	Clients    int
	Movements  int

	SalesTotal       *decimal.Decimal
	SalesMean        *decimal.Decimal
	SalesStdDev      *float64
	EstimatedBenefit *decimal.Decimal

	DepositsTotal *decimal.Decimal
	DepositsMean  *decimal.Decimal

	MovementsTotal *decimal.Decimal

	FirstDate *time.Time
	LastDate  *time.Time
	SpanDays  *int
	ShopCount *int
}

// Summary computes headline figures. Each field is filled independently so an
// empty dataset only blanks its own fields.
func (e *Engine) Summary(ops []domain.Operation, deps []domain.Deposit, clients []domain.Client, movs []domain.StockMovement) Summary {
	s := Summary{
		Operations: len(ops),
		Deposits:   len(deps),
		Clients:    len(clients),
		Movements:  len(movs),
	}

	if len(ops) > 0 {
		total := sum(ops, operationTotal)
		benefit := e.Benefit(total)
		s.SalesTotal = &total
		s.SalesMean = mean(total, len(ops))
		s.EstimatedBenefit = &benefit

		if len(ops) > 1 {
			values := make([]float64, len(ops))
			for i, o := range ops {
				values[i], _ = o.TotalGeneral.Float64()
			}
			sd := stat.StdDev(values, nil)
			s.SalesStdDev = &sd
		}

		first, last := ops[0].Date, ops[0].Date
		for _, o := range ops[1:] {
			if o.Date.Before(first) {
				first = o.Date
			}
			if o.Date.After(last) {
				last = o.Date
			}
		}
		span := daysBetween(first, last)
		shops := distinct(ops, operationShop)
		s.FirstDate, s.LastDate = &first, &last
		s.SpanDays = &span
		s.ShopCount = &shops
	}

	if len(deps) > 0 {
		total := sum(deps, depositAmount)
		s.DepositsTotal = &total
		s.DepositsMean = mean(total, len(deps))
	}

	if len(movs) > 0 {
		total := sum(movs, movementAmount)
		s.MovementsTotal = &total
	}

	return s
}
