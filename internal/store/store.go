// Package store provides read access to the shop document store.
//
// Documents are returned denormalized as field maps; typing and coercion
// happen in the extraction layer. Three backends are available: Firestore
// (the store the shop application writes to), MongoDB and an in-memory
// store used for tests and local development.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ararat/reports/internal/config"
)

// DayLayout is the ISO date layout used for string range bounds.
const DayLayout = "2006-01-02"

// ErrUnknownCollection is returned by stores that know their collections up front.
var ErrUnknownCollection = errors.New("unknown collection")

// Document is a raw record as stored in a collection.
type Document struct {
	ID     string
	Fields map[string]any
}

// DateRange is an inclusive day range on a date field. Nil bounds are open.
type DateRange struct {
	Field string
	From  *time.Time
	To    *time.Time
}

// Bounds returns the string bounds of the range: a document matches when
// lower <= value < upper. Dates are stored as ISO-8601 strings, so a
// lexicographic comparison against day boundaries covers every timestamp
// within the last day.
func (r DateRange) Bounds() (lower, upper string) {
	if r.From != nil {
		lower = r.From.Format(DayLayout)
	}
	if r.To != nil {
		upper = r.To.AddDate(0, 0, 1).Format(DayLayout)
	}
	return lower, upper
}

// TimeBounds returns the same bounds as instants at UTC midnight.
func (r DateRange) TimeBounds() (lower, upper *time.Time) {
	if r.From != nil {
		l := dayStart(*r.From)
		lower = &l
	}
	if r.To != nil {
		u := dayStart(*r.To).AddDate(0, 0, 1)
		upper = &u
	}
	return lower, upper
}

// Empty reports whether the range filters nothing.
func (r *DateRange) Empty() bool {
	return r == nil || (r.From == nil && r.To == nil)
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Equals     map[string]any
	Range      *DateRange
}

// EqualKeys returns the equality filter fields in a stable order.
func (q Query) EqualKeys() []string {
	keys := make([]string, 0, len(q.Equals))
	for k := range q.Equals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordStore queries a document store.
type RecordStore interface {
	Query(ctx context.Context, q Query) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// New creates the record store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (RecordStore, error) {
	switch cfg.Driver {
	case config.StoreFirestore:
		return NewFirestoreStore(ctx, cfg, log)
	case config.StoreMongo:
		return NewMongoStore(ctx, cfg, log)
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory record store, reports will be empty until documents are inserted")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
