// Package domain holds the typed records extracted from the shop document store.
//
// Records are immutable snapshots built fresh for each report generation.
// Monetary values use decimal arithmetic so that derived figures such as the
// estimated benefit are exact.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShopAll is the shop filter matching every shop.
const ShopAll = "all"

// Collection names in the document store.
const (
	CollectionOperations = "operations"
	CollectionDeposits   = "depots"
	CollectionClients    = "clients"
	CollectionMovements  = "mouvements"
	CollectionShops      = "shops"
)

// Operation is one closing cash/stock statement recorded by a shop (a sales transaction).
type Operation struct {
	ID           string
	ShopID       string
	UserID       string
	Date         time.Time
	TotalGeneral decimal.Decimal
	Period       string // reporting half-day ("matin", "soir") when present
	CreatedAt    *time.Time
}

// Deposit is a client card deposit or withdrawal.
type Deposit struct {
	ID        string
	ShopID    string
	ClientID  string // soft reference, the client may be unknown
	UserID    string
	Kind      string // "depot" or "retrait"
	Date      time.Time
	Montant   decimal.Decimal
	CreatedAt *time.Time
}

// Client is a shop customer holding a deposit card.
type Client struct {
	ID        string
	ShopID    string
	Nom       string
	Prenom    string
	Telephone string
	Solde     decimal.Decimal
	CreatedAt *time.Time
}

// FullName returns "Prenom Nom" trimmed of missing parts.
func (c Client) FullName() string {
	switch {
	case c.Prenom == "":
		return c.Nom
	case c.Nom == "":
		return c.Prenom
	default:
		return c.Prenom + " " + c.Nom
	}
}

// StockMovement is an inventory or cash movement (sale, transfer, loan, purchase...).
type StockMovement struct {
	ID        string
	ShopID    string
	UserID    string
	Date      time.Time
	Type      string
	Devise    string // currency code, e.g. USD or CDF
	Montant   decimal.Decimal
	Statut    string
	CreatedAt *time.Time
}

// Shop is the top-level tenant every other record belongs to.
type Shop struct {
	ID        string
	Name      string
	Location  string
	CreatedAt *time.Time
}

// Dated is implemented by records ordered by their business date.
type Dated interface {
	RecordID() string
	RecordDate() time.Time
}

func (o Operation) RecordID() string          { return o.ID }
func (o Operation) RecordDate() time.Time     { return o.Date }
func (d Deposit) RecordID() string            { return d.ID }
func (d Deposit) RecordDate() time.Time       { return d.Date }
func (m StockMovement) RecordID() string      { return m.ID }
func (m StockMovement) RecordDate() time.Time { return m.Date }

// Window is a resolved inclusive day range used to filter records.
// A nil bound is open; both nil means "all data".
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Unbounded reports whether the window applies no date filter.
func (w Window) Unbounded() bool {
	return w.Start == nil && w.End == nil
}

// Contains reports whether t falls on a day inside the window.
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	if w.Start != nil && d.Before(Day(*w.Start)) {
		return false
	}
	if w.End != nil && d.After(Day(*w.End)) {
		return false
	}
	return true
}

// String renders the window as "start..end", with "open" for a missing bound.
func (w Window) String() string {
	bound := func(t *time.Time) string {
		if t == nil {
			return "open"
		}
		return t.Format("2006-01-02")
	}
	return bound(w.Start) + ".." + bound(w.End)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
