package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func day(s string) *time.Time {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func seededStore() *MemoryStore {
	s := NewMemoryStore()
	s.Insert("operations",
		Document{ID: "op1", Fields: map[string]any{"shopId": "s1", "date": "2024-03-01T08:00:00.000Z"}},
		Document{ID: "op2", Fields: map[string]any{"shopId": "s2", "date": "2024-03-15"}},
		Document{ID: "op3", Fields: map[string]any{"shopId": "s1", "date": "2024-03-15T23:59:59.999Z"}},
		Document{ID: "op4", Fields: map[string]any{"shopId": "s1", "date": "2024-03-16T00:00:00.000Z"}},
		Document{ID: "op5", Fields: map[string]any{"shopId": "s1", "date": time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}},
	)
	return s
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestDateRange_Bounds(t *testing.T) {
	r := DateRange{Field: "date", From: day("2024-03-01"), To: day("2024-03-15")}
	lower, upper := r.Bounds()
	assert.Equal(t, "2024-03-01", lower)
	assert.Equal(t, "2024-03-16", upper)

	open := DateRange{Field: "date", To: day("2024-12-31")}
	lower, upper = open.Bounds()
	assert.Empty(t, lower)
	assert.Equal(t, "2025-01-01", upper)

	var nilRange *DateRange
	assert.True(t, nilRange.Empty())
	assert.True(t, (&DateRange{Field: "date"}).Empty())
}

func TestMemoryStore_Query(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{
			name: "no filters returns everything in insertion order",
			q:    Query{Collection: "operations"},
			want: []string{"op1", "op2", "op3", "op4", "op5"},
		},
		{
			name: "equality filter",
			q:    Query{Collection: "operations", Equals: map[string]any{"shopId": "s2"}},
			want: []string{"op2"},
		},
		{
			name: "inclusive day range covers the whole last day",
			q: Query{Collection: "operations", Range: &DateRange{
				Field: "date", From: day("2024-03-01"), To: day("2024-03-15"),
			}},
			want: []string{"op1", "op2", "op3", "op5"},
		},
		{
			name: "range and equality combined",
			q: Query{
				Collection: "operations",
				Equals:     map[string]any{"shopId": "s1"},
				Range:      &DateRange{Field: "date", From: day("2024-03-11")},
			},
			want: []string{"op3", "op4"},
		},
		{
			name: "unknown collection is empty",
			q:    Query{Collection: "missing"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(docs))
		})
	}
}

func TestMemoryStore_QueryReturnsCopies(t *testing.T) {
	s := seededStore()
	docs, err := s.Query(context.Background(), Query{Collection: "operations"})
	require.NoError(t, err)

	docs[0].Fields["shopId"] = "mutated"

	again, err := s.Query(context.Background(), Query{Collection: "operations"})
	require.NoError(t, err)
	assert.Equal(t, "s1", again[0].Fields["shopId"])
}

func TestMemoryStore_Failures(t *testing.T) {
	s := seededStore()
	boom := errors.New("unavailable")
	s.FailCollection("operations", boom)

	_, err := s.Query(context.Background(), Query{Collection: "operations"})
	assert.ErrorIs(t, err, boom)

	s.FailCollection("operations", nil)
	_, err = s.Query(context.Background(), Query{Collection: "operations"})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Query(ctx, Query{Collection: "operations"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}

func TestBuildMongoFilter(t *testing.T) {
	q := Query{
		Collection: "depots",
		Equals:     map[string]any{"shopId": "s1"},
		Range:      &DateRange{Field: "date", From: day("2024-03-01"), To: day("2024-03-31")},
	}

	filter := buildMongoFilter(q)

	assert.Equal(t, "s1", filter["shopId"])
	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)

	strClause := or[0].(bson.M)["date"].(bson.M)
	assert.Equal(t, "2024-03-01", strClause["$gte"])
	assert.Equal(t, "2024-04-01", strClause["$lt"])

	timeClause := or[1].(bson.M)["date"].(bson.M)
	assert.Equal(t, primitive.NewDateTimeFromTime(*day("2024-03-01")), timeClause["$gte"])
	assert.Equal(t, primitive.NewDateTimeFromTime(*day("2024-04-01")), timeClause["$lt"])
}

func TestBuildMongoFilter_NoRange(t *testing.T) {
	filter := buildMongoFilter(Query{Collection: "clients", Equals: map[string]any{"shopId": "s1"}})
	assert.Equal(t, bson.M{"shopId": "s1"}, filter)
}

func TestMongoID(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), mongoID(oid))
	assert.Equal(t, "abc", mongoID("abc"))
	assert.Equal(t, "42", mongoID(int32(42)))
	assert.Equal(t, "", mongoID(nil))
}
