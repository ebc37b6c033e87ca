package analytics

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ararat/reports/internal/domain"
)

// TopClientsLimit caps the top clients view.
const TopClientsLimit = 10

// ClientStats aggregates the deposits of one client.
type ClientStats struct {
	ClientID        string
	Name            string // empty when the client is unknown
	Total           decimal.Decimal
	Count           int
	Mean            *decimal.Decimal
	FirstDate       time.Time
	LastDate        time.Time
	AvgIntervalDays *float64
}

// ShopClientStats aggregates deposits per shop.
type ShopClientStats struct {
	ShopID          string
	DistinctClients int
	Total           decimal.Decimal
	Mean            *decimal.Decimal
	Transactions    int
}

// ClientReport holds the client behavior views.
type ClientReport struct {
	Clients []ClientStats
	ByShop  []ShopClientStats
	Top     []ClientStats
}

func depositAmount(d domain.Deposit) decimal.Decimal { return d.Montant }

// ClientBehavior analyses deposits per client and per shop. Deposits that
// reference unknown clients are counted under their client ID without a name.
func (e *Engine) ClientBehavior(clients []domain.Client, deps []domain.Deposit) ClientReport {
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.FullName()
	}

	perClient := e.ClientDeposits(deps)
	for i := range perClient {
		perClient[i].Name = names[perClient[i].ClientID]
	}

	return ClientReport{
		Clients: perClient,
		ByShop:  depositsByShop(deps),
		Top:     TopClients(perClient, TopClientsLimit),
	}
}

// ClientDeposits aggregates deposits per client, ordered by client ID.
func (e *Engine) ClientDeposits(deps []domain.Deposit) []ClientStats {
	groups := groupBy(deps, func(d domain.Deposit) string { return d.ClientID })

	out := make([]ClientStats, 0, len(groups))
	for _, grp := range groups {
		total := sum(grp.items, depositAmount)
		first, last := grp.items[0].Date, grp.items[0].Date
		for _, d := range grp.items[1:] {
			if d.Date.Before(first) {
				first = d.Date
			}
			if d.Date.After(last) {
				last = d.Date
			}
		}
		interval := float64(daysBetween(first, last)) / float64(len(grp.items))

		out = append(out, ClientStats{
			ClientID:        grp.key,
			Total:           total,
			Count:           len(grp.items),
			Mean:            mean(total, len(grp.items)),
			FirstDate:       first,
			LastDate:        last,
			AvgIntervalDays: &interval,
		})
	}
	return out
}

// TopClients returns up to n clients by descending total, ties broken by client ID.
func TopClients(stats []ClientStats, n int) []ClientStats {
	sorted := slices.Clone(stats)
	slices.SortStableFunc(sorted, func(a, b ClientStats) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return strings.Compare(a.ClientID, b.ClientID)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []ClientStats{}
	}
	return sorted
}

func depositsByShop(deps []domain.Deposit) []ShopClientStats {
	groups := groupBy(deps, func(d domain.Deposit) string { return d.ShopID })

	out := make([]ShopClientStats, 0, len(groups))
	for _, grp := range groups {
		total := sum(grp.items, depositAmount)
		out = append(out, ShopClientStats{
			ShopID:          grp.key,
			DistinctClients: distinct(grp.items, func(d domain.Deposit) string { return d.ClientID }),
			Total:           total,
			Mean:            mean(total, len(grp.items)),
			Transactions:    len(grp.items),
		})
	}
	return out
}
