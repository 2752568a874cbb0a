package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/filmlake/ingest/internal/digest"
)

func TestBuildKey(t *testing.T) {
	d := digest.Sum([]byte("payload"))
	ts := time.Date(2026, 2, 15, 23, 59, 59, 0, time.UTC)

	key := BuildKey("letterboxd", ts, d, "ratings.csv")

	assert.Equal(t, "letterboxd/20260215T235959Z/"+d.KeyPrefix()+"_ratings.csv", key)
}

func TestBuildKey_NormalizesToUTC(t *testing.T) {
	d := digest.Sum([]byte("payload"))
	loc := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2026, 2, 16, 1, 59, 59, 0, loc)
	utc := time.Date(2026, 2, 15, 23, 59, 59, 0, time.UTC)

	assert.Equal(t,
		BuildKey("letterboxd", utc, d, "ratings.csv"),
		BuildKey("letterboxd", local, d, "ratings.csv"),
	)
}

func TestBuildKey_SortsChronologically(t *testing.T) {
	d := digest.Sum([]byte("payload"))
	earlier := BuildKey("letterboxd", time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC), d, "diary.csv")
	later := BuildKey("letterboxd", time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC), d, "diary.csv")

	assert.Less(t, earlier, later)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ratings.csv", "ratings.csv"},
		{"my ratings.csv", "my_ratings.csv"},
		{"a b\tc.csv", "a_b_c.csv"},
		{"trailing .csv", "trailing_.csv"},
		// Only whitespace is rewritten; everything else passes through.
		{"UPPER-case_(1).csv", "UPPER-case_(1).csv"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "ratings.csv", Basename("letterboxd/20260215T235959Z/abc_ratings.csv"))
	assert.Equal(t, "ratings.csv", Basename("ratings.csv"))
	assert.Equal(t, "", Basename("letterboxd/"))
}
