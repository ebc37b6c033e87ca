// Package extraction turns raw store documents into typed, date-ordered datasets.
//
// Every extraction degrades to an empty dataset on failure: a store outage
// produces a logged warning and a zero-metric report, never an error.
package extraction

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/domain"
	"github.com/ararat/reports/internal/store"
)

// Extractor issues filtered queries per entity type.
type Extractor struct {
	store   store.RecordStore
	timeout time.Duration
	log     zerolog.Logger
}

// NewExtractor creates an extractor. A zero timeout leaves the caller's context untouched.
func NewExtractor(recordStore store.RecordStore, timeout time.Duration, log zerolog.Logger) *Extractor {
	return &Extractor{
		store:   recordStore,
		timeout: timeout,
		log:     log.With().Str("service", "extraction").Logger(),
	}
}

// Bundle holds the datasets of one report generation.
type Bundle struct {
	Operations []domain.Operation
	Deposits   []domain.Deposit
	Clients    []domain.Client
	Movements  []domain.StockMovement
}

// Empty reports whether no dated records were found.
func (b Bundle) Empty() bool {
	return len(b.Operations) == 0 && len(b.Deposits) == 0 && len(b.Movements) == 0
}

// Restrict keeps only dated records inside w. Clients are not dated and are kept as is.
func (b Bundle) Restrict(w domain.Window) Bundle {
	if w.Unbounded() {
		return b
	}
	return Bundle{
		Operations: filterWindow(b.Operations, w),
		Deposits:   filterWindow(b.Deposits, w),
		Clients:    b.Clients,
		Movements:  filterWindow(b.Movements, w),
	}
}

// Extract fetches operations, deposits, clients and movements for one report.
func (e *Extractor) Extract(ctx context.Context, w domain.Window, shopID string) Bundle {
	return Bundle{
		Operations: e.Operations(ctx, w, shopID),
		Deposits:   e.Deposits(ctx, w, shopID),
		Clients:    e.Clients(ctx, shopID),
		Movements:  e.Movements(ctx, w, shopID),
	}
}

// Operations extracts sales operations sorted by date.
func (e *Extractor) Operations(ctx context.Context, w domain.Window, shopID string) []domain.Operation {
	docs := e.fetch(ctx, domain.CollectionOperations, &w, shopID)

	ops := make([]domain.Operation, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		date, ok := parseTime(doc.Fields["date"])
		if !ok {
			skipped++
			continue
		}
		ops = append(ops, domain.Operation{
			ID:           doc.ID,
			ShopID:       str(doc.Fields["shopId"]),
			UserID:       str(doc.Fields["userId"]),
			Date:         date,
			TotalGeneral: parseDecimal(firstPresent(doc.Fields, "total_general", "totalGeneral")),
			Period:       str(doc.Fields["periode_rapport"]),
			CreatedAt:    optionalTime(doc.Fields["createdAt"]),
		})
	}

	sortByDate(ops)
	e.logExtracted(domain.CollectionOperations, shopID, w, len(ops), skipped)
	return ops
}

// Deposits extracts client deposits sorted by date.
func (e *Extractor) Deposits(ctx context.Context, w domain.Window, shopID string) []domain.Deposit {
	docs := e.fetch(ctx, domain.CollectionDeposits, &w, shopID)

	deposits := make([]domain.Deposit, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		date, ok := parseTime(doc.Fields["date"])
		if !ok {
			skipped++
			continue
		}
		deposits = append(deposits, domain.Deposit{
			ID:        doc.ID,
			ShopID:    str(doc.Fields["shopId"]),
			ClientID:  str(doc.Fields["clientId"]),
			UserID:    str(doc.Fields["userId"]),
			Kind:      str(doc.Fields["type"]),
			Date:      date,
			Montant:   parseDecimal(doc.Fields["montant"]),
			CreatedAt: optionalTime(doc.Fields["createdAt"]),
		})
	}

	sortByDate(deposits)
	e.logExtracted(domain.CollectionDeposits, shopID, w, len(deposits), skipped)
	return deposits
}

// Clients extracts shop clients. Clients carry no business date and are never date-filtered.
func (e *Extractor) Clients(ctx context.Context, shopID string) []domain.Client {
	docs := e.fetch(ctx, domain.CollectionClients, nil, shopID)

	clients := make([]domain.Client, 0, len(docs))
	for _, doc := range docs {
		clients = append(clients, domain.Client{
			ID:        doc.ID,
			ShopID:    str(doc.Fields["shopId"]),
			Nom:       str(doc.Fields["nom"]),
			Prenom:    str(doc.Fields["prenom"]),
			Telephone: str(doc.Fields["telephone"]),
			Solde:     parseDecimal(doc.Fields["solde"]),
			CreatedAt: optionalTime(doc.Fields["createdAt"]),
		})
	}

	slices.SortStableFunc(clients, func(a, b domain.Client) int {
		return strings.Compare(a.ID, b.ID)
	})
	e.logExtracted(domain.CollectionClients, shopID, domain.Window{}, len(clients), 0)
	return clients
}

// Movements extracts stock movements sorted by date.
func (e *Extractor) Movements(ctx context.Context, w domain.Window, shopID string) []domain.StockMovement {
	docs := e.fetch(ctx, domain.CollectionMovements, &w, shopID)

	movements := make([]domain.StockMovement, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		date, ok := parseTime(doc.Fields["date"])
		if !ok {
			skipped++
			continue
		}
		movements = append(movements, domain.StockMovement{
			ID:        doc.ID,
			ShopID:    str(doc.Fields["shopId"]),
			UserID:    str(doc.Fields["userId"]),
			Date:      date,
			Type:      str(doc.Fields["type"]),
			// "usd" and "USD" are one currency in every movement grouping.
			Devise:    strings.ToUpper(str(doc.Fields["devise"])),
			Montant:   parseDecimal(doc.Fields["montant"]),
			Statut:    str(doc.Fields["statut"]),
			CreatedAt: optionalTime(doc.Fields["createdAt"]),
		})
	}

	sortByDate(movements)
	e.logExtracted(domain.CollectionMovements, shopID, w, len(movements), skipped)
	return movements
}

// Shops extracts every shop, sorted by ID.
func (e *Extractor) Shops(ctx context.Context) []domain.Shop {
	docs := e.fetch(ctx, domain.CollectionShops, nil, domain.ShopAll)

	shops := make([]domain.Shop, 0, len(docs))
	for _, doc := range docs {
		shops = append(shops, domain.Shop{
			ID:        doc.ID,
			Name:      str(firstPresent(doc.Fields, "name", "nom")),
			Location:  str(doc.Fields["location"]),
			CreatedAt: optionalTime(doc.Fields["createdAt"]),
		})
	}

	slices.SortStableFunc(shops, func(a, b domain.Shop) int {
		return strings.Compare(a.ID, b.ID)
	})
	e.logExtracted(domain.CollectionShops, domain.ShopAll, domain.Window{}, len(shops), 0)
	return shops
}

// Ping checks connectivity to the underlying store.
func (e *Extractor) Ping(ctx context.Context) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.store.Ping(ctx)
}

// fetch runs one query. Any failure is logged and yields no documents.
func (e *Extractor) fetch(ctx context.Context, collection string, w *domain.Window, shopID string) []store.Document {
	q := store.Query{Collection: collection}
	if shopID != "" && shopID != domain.ShopAll {
		q.Equals = map[string]any{"shopId": shopID}
	}
	if w != nil && !w.Unbounded() {
		q.Range = &store.DateRange{Field: "date", From: w.Start, To: w.End}
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	docs, err := e.store.Query(ctx, q)
	if err != nil {
		event := e.log.Warn().Err(err).Str("collection", collection).Str("shop", shopID)
		if w != nil {
			event = withWindow(event, *w)
		}
		event.Msg("Extraction failed, continuing with an empty dataset")
		return nil
	}
	return docs
}

func (e *Extractor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Extractor) logExtracted(collection, shopID string, w domain.Window, count, skipped int) {
	event := e.log.Debug().
		Str("collection", collection).
		Str("shop", shopID).
		Int("count", count)
	if skipped > 0 {
		event = event.Int("skipped_undated", skipped)
	}
	withWindow(event, w).Msg("Records extracted")
}

func withWindow(event *zerolog.Event, w domain.Window) *zerolog.Event {
	if w.Start != nil {
		event = event.Str("start", w.Start.Format(store.DayLayout))
	}
	if w.End != nil {
		event = event.Str("end", w.End.Format(store.DayLayout))
	}
	return event
}

// sortByDate orders records ascending by date, ties broken by ID.
func sortByDate[T domain.Dated](records []T) {
	slices.SortStableFunc(records, func(a, b T) int {
		if c := a.RecordDate().Compare(b.RecordDate()); c != 0 {
			return c
		}
		return strings.Compare(a.RecordID(), b.RecordID())
	})
}

func filterWindow[T domain.Dated](records []T, w domain.Window) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if w.Contains(r.RecordDate()) {
			out = append(out, r)
		}
	}
	return out
}
