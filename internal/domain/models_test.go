package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestClient_FullName(t *testing.T) {
	tests := []struct {
		client Client
		want   string
	}{
		{Client{Prenom: "Joseph", Nom: "Kabila"}, "Joseph Kabila"},
		{Client{Nom: "Mbala"}, "Mbala"},
		{Client{Prenom: "Aline"}, "Aline"},
		{Client{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.client.FullName())
	}
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Start: day(2024, 3, 1), End: day(2024, 3, 15)}

	assert.True(t, w.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)), "end day is inclusive")
	assert.False(t, w.Contains(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))

	open := Window{Start: day(2024, 3, 1)}
	assert.True(t, open.Contains(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, open.Unbounded())
	assert.True(t, Window{}.Unbounded())
	assert.True(t, Window{}.Contains(time.Time{}))
}

func TestWindow_String(t *testing.T) {
	assert.Equal(t, "2024-03-01..2024-03-15", Window{Start: day(2024, 3, 1), End: day(2024, 3, 15)}.String())
	assert.Equal(t, "open..2024-03-15", Window{End: day(2024, 3, 15)}.String())
	assert.Equal(t, "open..open", Window{}.String())
}

func TestDay(t *testing.T) {
	in := time.Date(2024, 3, 15, 22, 30, 0, 0, time.FixedZone("UTC+1", 3600))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestDatedRecords(t *testing.T) {
	when := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []Dated{
		Operation{ID: "op", Date: when},
		Deposit{ID: "dep", Date: when},
		StockMovement{ID: "mov", Date: when},
	}
	for _, r := range records {
		assert.Equal(t, when, r.RecordDate())
		assert.NotEmpty(t, r.RecordID())
	}
}
