package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/ararat/reports/internal/domain"
)

// MovementTypeStats aggregates movements sharing a type and currency.
type MovementTypeStats struct {
	Type   string
	Devise string
	Total  decimal.Decimal
	Count  int
	Mean   *decimal.Decimal
}

// ShopMovementStats aggregates the movements of one shop.
type ShopMovementStats struct {
	ShopID        string
	Total         decimal.Decimal
	Count         int
	DistinctTypes int
}

// MonthlyMovementStats is one month of the movement trend.
type MonthlyMovementStats struct {
	Month string
	Total decimal.Decimal
	Count int
}

// StockReport holds the three movement views.
type StockReport struct {
	ByType  []MovementTypeStats
	ByShop  []ShopMovementStats
	Monthly []MonthlyMovementStats
}

func movementAmount(m domain.StockMovement) decimal.Decimal { return m.Montant }

// StockMovements breaks movements down by (type, currency), by shop and by month.
func (e *Engine) StockMovements(movs []domain.StockMovement) StockReport {
	return StockReport{
		ByType:  e.MovementsByType(movs),
		ByShop:  movementsByShop(movs),
		Monthly: movementsByMonth(movs),
	}
}

// MovementsByType groups movements by type then currency.
func (e *Engine) MovementsByType(movs []domain.StockMovement) []MovementTypeStats {
	// \x00 sorts before any printable byte so "a" groups before "ab".
	groups := groupBy(movs, func(m domain.StockMovement) string { return m.Type + "\x00" + m.Devise })

	out := make([]MovementTypeStats, 0, len(groups))
	for _, grp := range groups {
		total := sum(grp.items, movementAmount)
		out = append(out, MovementTypeStats{
			Type:   grp.items[0].Type,
			Devise: grp.items[0].Devise,
			Total:  total,
			Count:  len(grp.items),
			Mean:   mean(total, len(grp.items)),
		})
	}
	return out
}

func movementsByShop(movs []domain.StockMovement) []ShopMovementStats {
	groups := groupBy(movs, func(m domain.StockMovement) string { return m.ShopID })

	out := make([]ShopMovementStats, 0, len(groups))
	for _, grp := range groups {
		out = append(out, ShopMovementStats{
			ShopID:        grp.key,
			Total:         sum(grp.items, movementAmount),
			Count:         len(grp.items),
			DistinctTypes: distinct(grp.items, func(m domain.StockMovement) string { return m.Type }),
		})
	}
	return out
}

func movementsByMonth(movs []domain.StockMovement) []MonthlyMovementStats {
	groups := groupBy(movs, func(m domain.StockMovement) string { return GranularityMonth.Key(m.Date) })

	out := make([]MonthlyMovementStats, 0, len(groups))
	for _, grp := range groups {
		out = append(out, MonthlyMovementStats{
			Month: grp.key,
			Total: sum(grp.items, movementAmount),
			Count: len(grp.items),
		})
	}
	return out
}
