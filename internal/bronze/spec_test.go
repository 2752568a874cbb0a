package bronze

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantTable string
		wantErr   bool
	}{
		{
			name:      "exact filename",
			key:       "ratings.csv",
			wantTable: "bronze.ratings",
		},
		{
			name:      "exact filename under prefix",
			key:       "letterboxd/20250101T000000Z/watched.csv",
			wantTable: "bronze.watched",
		},
		{
			name:      "digest-prefixed upload key",
			key:       "letterboxd/20250101T000000Z/4ac9b0a3f1e2_ratings.csv",
			wantTable: "bronze.ratings",
		},
		{
			name:      "uppercase filename",
			key:       "letterboxd/20250101T000000Z/4ac9b0a3f1e2_Ratings.CSV",
			wantTable: "bronze.ratings",
		},
		{
			name:      "diary",
			key:       "letterboxd/20250101T000000Z/0011aabbccdd_diary.csv",
			wantTable: "bronze.diary",
		},
		{
			name:      "profile",
			key:       "letterboxd/20250101T000000Z/0011aabbccdd_profile.csv",
			wantTable: "bronze.profile",
		},
		{
			name:    "unknown filename fails closed",
			key:     "letterboxd/20250101T000000Z/0011aabbccdd_comments.csv",
			wantErr: true,
		},
		{
			name:    "substring without underscore separator fails",
			key:     "letterboxd/20250101T000000Z/myratings.csv",
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Resolve(tt.key)
			if tt.wantErr {
				var unsupported *UnsupportedSourceError
				if !errors.As(err, &unsupported) {
					t.Fatalf("Resolve(%q) error = %v, want UnsupportedSourceError", tt.key, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.key, err)
			}
			if spec.Table != tt.wantTable {
				t.Errorf("Resolve(%q) table = %q, want %q", tt.key, spec.Table, tt.wantTable)
			}
		})
	}
}

func TestResolveTable(t *testing.T) {
	spec, err := ResolveTable("ratings")
	if err != nil {
		t.Fatalf("ResolveTable(ratings) error: %v", err)
	}
	if spec.Table != "bronze.ratings" {
		t.Errorf("table = %q, want bronze.ratings", spec.Table)
	}

	if spec, err := ResolveTable("  Watchlist "); err != nil || spec.Table != "bronze.watchlist" {
		t.Errorf("ResolveTable is not case- and space-insensitive: %v %v", spec, err)
	}

	if _, err := ResolveTable("silver_ratings"); err == nil {
		t.Error("ResolveTable(silver_ratings) should fail closed")
	}
}

func TestTables(t *testing.T) {
	got := Tables()
	want := []string{"diary", "profile", "ratings", "reviews", "watched", "watchlist"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tables() = %v, want %v", got, want)
	}
	if !sort.StringsAreSorted(got) {
		t.Error("Tables() must be sorted")
	}
}

func TestSpecColumnOrder(t *testing.T) {
	spec, err := ResolveTable("diary")
	if err != nil {
		t.Fatal(err)
	}

	wantSource := []string{"Date", "Name", "Year", "Letterboxd URI", "Rating", "Rewatch", "Tags", "Watched Date"}
	if got := spec.SourceColumns(); !reflect.DeepEqual(got, wantSource) {
		t.Errorf("SourceColumns() = %v, want %v", got, wantSource)
	}

	wantTarget := []string{"list_date", "name", "year", "letterboxd_uri", "rating", "rewatch", "tags", "watched_date"}
	if got := spec.TargetColumns(); !reflect.DeepEqual(got, wantTarget) {
		t.Errorf("TargetColumns() = %v, want %v", got, wantTarget)
	}
}

func TestValidate(t *testing.T) {
	spec, err := ResolveTable("ratings")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		headers     []string
		wantMissing []string
	}{
		{
			name:    "exact headers",
			headers: []string{"Date", "Name", "Year", "Letterboxd URI", "Rating"},
		},
		{
			name:    "extra columns are fine",
			headers: []string{"Date", "Name", "Year", "Letterboxd URI", "Rating", "Mood"},
		},
		{
			name:    "order does not matter",
			headers: []string{"Rating", "Letterboxd URI", "Year", "Name", "Date"},
		},
		{
			name:        "one missing",
			headers:     []string{"Date", "Name", "Year", "Letterboxd URI"},
			wantMissing: []string{"Rating"},
		},
		{
			name:        "several missing",
			headers:     []string{"Name"},
			wantMissing: []string{"Date", "Year", "Letterboxd URI", "Rating"},
		},
		{
			name:        "case sensitive",
			headers:     []string{"date", "name", "year", "letterboxd uri", "rating"},
			wantMissing: []string{"Date", "Name", "Year", "Letterboxd URI", "Rating"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(spec, tt.headers)
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}

			var missing *MissingColumnsError
			if !errors.As(err, &missing) {
				t.Fatalf("Validate() error = %v, want MissingColumnsError", err)
			}
			if !reflect.DeepEqual(missing.Missing, tt.wantMissing) {
				t.Errorf("missing = %v, want %v", missing.Missing, tt.wantMissing)
			}
			if !reflect.DeepEqual(missing.Observed, tt.headers) {
				t.Errorf("observed = %v, want %v", missing.Observed, tt.headers)
			}
		})
	}
}
