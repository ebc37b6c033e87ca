package spreadsheet

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/modules/analytics"
)

// Sheet names of the report workbook, in rendering order.
const (
	SheetSummary        = "Summary"
	SheetDailySales     = "Daily Sales"
	SheetShopSales      = "Sales by Shop"
	SheetClientDeposits = "Client Deposits"
	SheetStockMovements = "Stock Movements"
	SheetOperations     = "Operations"
	SheetDeposits       = "Deposits"
	SheetSalesTrend     = "Sales Performance"
	SheetDailyBenefits  = "Daily Benefits"
	SheetTopClients     = "Top Clients"
	SheetDepositsByShop = "Deposits by Shop"
	SheetStockByShop    = "Stock by Shop"
	SheetStockMonthly   = "Stock Trend"
)

const (
	dayLayout       = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"

	defaultTextWidth    = 15
	defaultNumberWidth  = 20
	defaultSummaryWidth = 25
)

// Report is everything rendered into one workbook.
type Report struct {
	Margin     decimal.Decimal
	Summary    analytics.Summary
	Daily      []analytics.DailySale
	Shops      []analytics.ShopSales
	Clients    []analytics.ClientStats
	Stock      []analytics.MovementTypeStats
	Operations []domain.Operation
	Deposits   []domain.Deposit

	// Analysis adds the trend sheets after the raw dumps when set.
	Analysis *Analysis
}

// Analysis holds the optional trend views.
type Analysis struct {
	Granularity analytics.Granularity
	Sales       []analytics.PeriodSales
	Benefits    analytics.BenefitReport
	Clients     analytics.ClientReport
	Stock       analytics.StockReport
}

// BuildWorkbook maps a report onto its fixed sheets. Empty views keep their header row.
func BuildWorkbook(r Report) Workbook {
	wb := Workbook{Sheets: []Sheet{
		summarySheet(r),
		dailySalesSheet(r.Daily),
		shopSalesSheet(r.Shops),
		clientDepositsSheet(r.Clients),
		stockSheet(r.Stock),
		operationsSheet(r.Operations),
		depositsSheet(r.Deposits),
	}}
	if a := r.Analysis; a != nil {
		wb.Sheets = append(wb.Sheets,
			salesTrendSheet(a),
			dailyBenefitsSheet(a.Benefits.Daily),
			topClientsSheet(a.Clients.Top),
			depositsByShopSheet(a.Clients.ByShop),
			stockByShopSheet(a.Stock.ByShop),
			stockMonthlySheet(a.Stock.Monthly),
		)
	}
	return wb
}

func summarySheet(r Report) Sheet {
	s := r.Summary
	margin := r.Margin
	if margin.IsZero() {
		margin = analytics.DefaultMargin
	}

	rows := [][]any{
		{"Operations", s.Operations},
		{"Deposits", s.Deposits},
		{"Clients", s.Clients},
		{"Stock movements", s.Movements},
	}
	add := func(label string, v any) {
		if v != nil {
			rows = append(rows, []any{label, v})
		}
	}
	add("Total sales", money(s.SalesTotal))
	add("Average sale", money(s.SalesMean))
	add("Sales standard deviation", optFloat(s.SalesStdDev))
	add(fmt.Sprintf("Estimated benefit (%s%%)", margin.Mul(decimal.NewFromInt(100)).String()), money(s.EstimatedBenefit))
	add("Total deposits", money(s.DepositsTotal))
	add("Average deposit", money(s.DepositsMean))
	add("Total movements", money(s.MovementsTotal))
	add("Period start", optDay(s.FirstDate))
	add("Period end", optDay(s.LastDate))
	if s.SpanDays != nil {
		add("Days covered", *s.SpanDays)
	}
	if s.ShopCount != nil {
		add("Shops", *s.ShopCount)
	}

	return Sheet{
		Name: SheetSummary,
		Columns: []Column{
			{Header: "Metric", Width: defaultSummaryWidth},
			{Header: "Value", Width: defaultNumberWidth, Kind: Number},
		},
		Rows: rows,
	}
}

func dailySalesSheet(days []analytics.DailySale) Sheet {
	rows := make([][]any, 0, len(days))
	for _, d := range days {
		rows = append(rows, []any{d.Date.Format(dayLayout), amount(d.Total), d.ShopCount, amount(d.EstimatedBenefit)})
	}
	return Sheet{
		Name: SheetDailySales,
		Columns: []Column{
			{Header: "Date", Width: defaultTextWidth},
			{Header: "Total Sales", Width: defaultNumberWidth, Kind: Number},
			{Header: "Shop Count", Width: defaultNumberWidth, Kind: Integer},
			{Header: "Estimated Benefit", Width: defaultNumberWidth, Kind: Number},
		},
		Rows: rows,
	}
}

func shopSalesSheet(shops []analytics.ShopSales) Sheet {
	rows := make([][]any, 0, len(shops))
	for _, s := range shops {
		rows = append(rows, []any{s.ShopID, amount(s.Total), money(s.Mean), s.Count, amount(s.EstimatedBenefit)})
	}
	return Sheet{
		Name: SheetShopSales,
		Columns: []Column{
			{Header: "ShopId", Width: defaultNumberWidth},
			{Header: "Total", Width: defaultNumberWidth, Kind: Number},
			{Header: "Mean", Width: defaultNumberWidth, Kind: Number},
			{Header: "Count", Width: defaultNumberWidth, Kind: Integer},
			{Header: "Estimated Benefit", Width: defaultNumberWidth, Kind: Number},
		},
		Rows: rows,
	}
}

func clientDepositsSheet(clients []analytics.ClientStats) Sheet {
	rows := make([][]any, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, []any{
			c.ClientID, amount(c.Total), c.Count, money(c.Mean),
			c.FirstDate.Format(dayLayout), c.LastDate.Format(dayLayout),
		})
	}
	return Sheet{
		Name: SheetClientDeposits,
		Columns: []Column{
			{Header: "ClientId", Width: defaultNumberWidth},
			{Header: "Total", Width: defaultNumberWidth, Kind: Number},
			{Header: "Count", Width: defaultNumberWidth, Kind: Integer},
			{Header: "Mean", Width: defaultNumberWidth, Kind: Number},
			{Header: "First Date", Width: defaultTextWidth},
			{Header: "Last Date", Width: defaultTextWidth},
		},
		Rows: rows,
	}
}

func stockSheet(stats []analytics.MovementTypeStats) Sheet {
	rows := make([][]any, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []any{s.Type, s.Devise, amount(s.Total), s.Count, money(s.Mean)})
	}
	return Sheet{
		Name: SheetStockMovements,
		Columns: []Column{
			{Header: "Type", Width: defaultTextWidth},
			{Header: "Currency", Width: defaultTextWidth},
			{Header: "Total", Width: defaultNumberWidth, Kind: Number},
			{Header: "Count", Width: defaultNumberWidth, Kind: Integer},
			{Header: "Mean", Width: defaultNumberWidth, Kind: Number},
		},
		Rows: rows,
	}
}

func operationsSheet(ops []domain.Operation) Sheet {
	rows := make([][]any, 0, len(ops))
	for _, o := range ops {
		rows = append(rows, []any{
			o.ID, o.ShopID, o.UserID, o.Date.Format(dayLayout),
			amount(o.TotalGeneral), o.Period, timestamp(o.CreatedAt),
		})
	}
	return Sheet{
		Name: SheetOperations,
		Columns: []Column{
			{Header: "Id"},
			{Header: "ShopId"},
			{Header: "UserId"},
			{Header: "Date", Width: defaultTextWidth},
			{Header: "Total General", Width: defaultNumberWidth, Kind: Number},
			{Header: "Period"},
			{Header: "Created At", Width: defaultNumberWidth},
		},
		Rows: rows,
	}
}

func depositsSheet(deps []domain.Deposit) Sheet {
	rows := make([][]any, 0, len(deps))
	for _, d := range deps {
		rows = append(rows, []any{
			d.ID, d.ShopID, d.ClientID, d.UserID, d.Kind,
			d.Date.Format(dayLayout), amount(d.Montant), timestamp(d.CreatedAt),
		})
	}
	return Sheet{
		Name: SheetDeposits,
		Columns: []Column{
			{Header: "Id"},
			{Header: "ShopId"},
			{Header: "ClientId"},
			{Header: "UserId"},
			{Header: "Type"},
			{Header: "Date", Width: defaultTextWidth},
			{Header: "Amount", Width: defaultNumberWidth, Kind: Number},
			{Header: "Created At", Width: defaultNumberWidth},
		},
		Rows: rows,
	}
}

func salesTrendSheet(a *Analysis) Sheet {
	rows := make([][]any, 0, len(a.Sales))
	for _, p := range a.Sales {
		rows = append(rows, []any{
			p.Period, amount(p.Total), money(p.Mean), p.Count, p.ShopCount,
			optFloat(p.ChangePct), amount(p.EstimatedBenefit),
		})
	}
	return Sheet{
		Name: SheetSalesTrend,
		Columns: []Column{
			{Header: fmt.Sprintf("Period (%s)", a.Granularity), Width: defaultTextWidth},
			{Header: "Total Sales", Width: defaultNumberWidth, Kind: Number},
			{Header: "Mean", Width: defaultNumberWidth, Kind: Number},
			{Header: "Operations", Width: defaultTextWidth, Kind: Integer},
			{Header: "Shop Count", Width: defaultTextWidth, Kind: Integer},
			{Header: "Change %", Width: defaultTextWidth, Kind: Number},
			{Header: "Estimated Benefit", Width: defaultNumberWidth, Kind: Number},
		},
		Rows: rows,
	}
}

func dailyBenefitsSheet(days []analytics.DailyBenefit) Sheet {
	rows := make([][]any, 0, len(days))
	for _, d := range days {
		rows = append(rows, []any{
			d.Date.Format(dayLayout), amount(d.Total), amount(d.EstimatedBenefit),
			optFloat(d.ChangePct), optFloat(d.BenefitChangePct), optFloat(d.Trend),
			amount(d.Movements),
		})
	}
	return Sheet{
		Name: SheetDailyBenefits,
		Columns: []Column{
			{Header: "Date", Width: defaultTextWidth},
			{Header: "Total Sales", Width: defaultNumberWidth, Kind: Number},
			{Header: "Estimated Benefit", Width: defaultNumberWidth, Kind: Number},
			{Header: "Sales Change %", Width: defaultTextWidth, Kind: Number},
			{Header: "Benefit Change %", Width: defaultTextWidth, Kind: Number},
			{Header: fmt.Sprintf("%d-Day Average", analytics.TrendWindow), Width: defaultTextWidth, Kind: Number},
			{Header: "Stock Movements", Width: defaultNumberWidth, Kind: Number},
		},
		Rows: rows,
	}
}

func topClientsSheet(top []analytics.ClientStats) Sheet {
	rows := make([][]any, 0, len(top))
	for i, c := range top {
		rows = append(rows, []any{
			i + 1, c.ClientID, c.Name, amount(c.Total), c.Count, money(c.Mean),
			c.FirstDate.Format(dayLayout), c.LastDate.Format(dayLayout), optFloat(c.AvgIntervalDays),
		})
	}
	return Sheet{
		Name: SheetTopClients,
		Columns: []Column{
			{Header: "Rank", Kind: Integer},
			{Header: "ClientId", Width: defaultNumberWidth},
			{Header: "Name", Width: defaultNumberWidth},
			{Header: "Total", Width: defaultNumberWidth, Kind: Number},
			{Header: "Count", Kind: Integer},
			{Header: "Mean", Width: defaultNumberWidth, Kind: Number},
			{Header: "First Date", Width: defaultTextWidth},
			{Header: "Last Date", Width: defaultTextWidth},
			{Header: "Avg Interval (days)", Width: defaultTextWidth, Kind: Number},
		},
		Rows: rows,
	}
}

func depositsByShopSheet(shops []analytics.ShopClientStats) Sheet {
	rows := make([][]any, 0, len(shops))
	for _, s := range shops {
		rows = append(rows, []any{s.ShopID, s.DistinctClients, amount(s.Total), money(s.Mean), s.Transactions})
	}
	return Sheet{
		Name: SheetDepositsByShop,
		Columns: []Column{
			{Header: "ShopId", Width: defaultNumberWidth},
			{Header: "Clients", Kind: Integer},
			{Header: "Total", Width: defaultNumberWidth, Kind: Number},
			{Header: "Mean", Width: defaultNumberWidth, Kind: Number},
			{Header: "Transactions", Width: defaultTextWidth, Kind: Integer},
		},
		Rows: rows,
	}
}

func stockByShopSheet(shops []analytics.ShopMovementStats) Sheet {
	rows := make([][]any, 0, len(shops))
	for _, s := range shops {
		rows = append(rows, []any{s.ShopID, amount(s.Total), s.Count, s.DistinctTypes})
	}
	return Sheet{
		Name: SheetStockByShop,
		Columns: []Column{
			{Header: "ShopId", Width: defaultNumberWidth},
			{Header: "Total", Width: defaultNumberWidth, Kind: Number},
			{Header: "Count", Kind: Integer},
			{Header: "Distinct Types", Width: defaultTextWidth, Kind: Integer},
		},
		Rows: rows,
	}
}

func stockMonthlySheet(months []analytics.MonthlyMovementStats) Sheet {
	rows := make([][]any, 0, len(months))
	for _, m := range months {
		rows = append(rows, []any{m.Month, amount(m.Total), m.Count})
	}
	return Sheet{
		Name: SheetStockMonthly,
		Columns: []Column{
			{Header: "Month", Width: defaultTextWidth},
			{Header: "Total", Width: defaultNumberWidth, Kind: Number},
			{Header: "Count", Kind: Integer},
		},
		Rows: rows,
	}
}

// amount rounds a money value to cents for display.
func amount(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func money(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return amount(*d)
}

func optFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return decimal.NewFromFloat(*v).Round(2).InexactFloat64()
}

func optDay(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dayLayout)
}

func timestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timestampLayout)
}
