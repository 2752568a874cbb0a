// Package bronze loads raw CSV exports from object storage into the
// bronze layer of the warehouse, exactly once per distinct payload.
//
// Routing is a closed table: every supported export file has a Spec
// mapping its CSV headers to bronze columns, and anything unrecognized
// fails with UnsupportedSourceError rather than a best-effort guess.
package bronze

import (
	"sort"
	"strings"
)

// ColumnMapping maps one CSV header to its bronze column. Mappings are
// ordered slices, not maps: the insert column order must be stable.
type ColumnMapping struct {
	Source string // CSV header, matched exactly
	Target string // bronze column name
}

// Spec routes one source file to its bronze table.
type Spec struct {
	// Table is the fully qualified target, e.g. "bronze.ratings".
	Table string
	// Mapping lists the expected CSV columns in insert order.
	Mapping []ColumnMapping
}

// SourceColumns returns the expected CSV header names in mapping order.
func (s Spec) SourceColumns() []string {
	cols := make([]string, len(s.Mapping))
	for i, m := range s.Mapping {
		cols[i] = m.Source
	}
	return cols
}

// TargetColumns returns the bronze column names in mapping order.
func (s Spec) TargetColumns() []string {
	cols := make([]string, len(s.Mapping))
	for i, m := range s.Mapping {
		cols[i] = m.Target
	}
	return cols
}

// listMapping is shared by the watchlist-shaped exports.
var listMapping = []ColumnMapping{
	{"Date", "list_date"},
	{"Name", "name"},
	{"Year", "year"},
	{"Letterboxd URI", "letterboxd_uri"},
}

// specs is the closed routing table, keyed by lower-cased source
// filename. Adding a source means adding an entry here plus its table
// migration; there is no runtime registration.
var specs = map[string]Spec{
	"watchlist.csv": {
		Table:   "bronze.watchlist",
		Mapping: listMapping,
	},
	"watched.csv": {
		Table:   "bronze.watched",
		Mapping: listMapping,
	},
	"ratings.csv": {
		Table: "bronze.ratings",
		Mapping: append(append([]ColumnMapping{}, listMapping...),
			ColumnMapping{"Rating", "rating"},
		),
	},
	"diary.csv": {
		Table: "bronze.diary",
		Mapping: append(append([]ColumnMapping{}, listMapping...),
			ColumnMapping{"Rating", "rating"},
			ColumnMapping{"Rewatch", "rewatch"},
			ColumnMapping{"Tags", "tags"},
			ColumnMapping{"Watched Date", "watched_date"},
		),
	},
	"reviews.csv": {
		Table: "bronze.reviews",
		Mapping: append(append([]ColumnMapping{}, listMapping...),
			ColumnMapping{"Rating", "rating"},
			ColumnMapping{"Rewatch", "rewatch"},
			ColumnMapping{"Review", "review"},
			ColumnMapping{"Tags", "tags"},
			ColumnMapping{"Watched Date", "watched_date"},
		),
	},
	"profile.csv": {
		Table: "bronze.profile",
		Mapping: []ColumnMapping{
			{"Date Joined", "date_joined"},
			{"Username", "username"},
			{"Given Name", "given_name"},
			{"Family Name", "family_name"},
			{"Email Address", "email_address"},
			{"Location", "location"},
			{"Website", "website"},
			{"Bio", "bio"},
			{"Pronoun", "pronoun"},
			{"Favorite Films", "favorite_films"},
		},
	},
}

// byTable indexes specs by bare table name ("ratings") for the
// explicit-table load path.
var byTable = func() map[string]Spec {
	m := make(map[string]Spec, len(specs))
	for _, spec := range specs {
		name := strings.TrimPrefix(spec.Table, "bronze.")
		m[name] = spec
	}
	return m
}()

// Resolve picks the spec for a storage key from its terminal segment.
//
// Upload keys embed a digest prefix ({prefix}_{filename}), so an exact
// filename match is tried first and a "_{filename}" suffix match second.
// Unknown identities fail closed.
func Resolve(objectKey string) (Spec, error) {
	base := strings.ToLower(basename(objectKey))

	if spec, ok := specs[base]; ok {
		return spec, nil
	}
	for filename, spec := range specs {
		if strings.HasSuffix(base, "_"+filename) {
			return spec, nil
		}
	}
	return Spec{}, &UnsupportedSourceError{Identity: base, Key: objectKey}
}

// ResolveTable picks the spec for an explicit bare table name.
func ResolveTable(table string) (Spec, error) {
	name := strings.ToLower(strings.TrimSpace(table))
	if spec, ok := byTable[name]; ok {
		return spec, nil
	}
	return Spec{}, &UnsupportedSourceError{Identity: name}
}

// Tables returns the bare names of all routable bronze tables, sorted.
func Tables() []string {
	names := make([]string, 0, len(byTable))
	for name := range byTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every expected source column appears in the
// observed CSV headers. On failure it reports the complete missing set
// and the complete observed list.
func Validate(spec Spec, observedHeaders []string) error {
	observed := make(map[string]bool, len(observedHeaders))
	for _, h := range observedHeaders {
		observed[h] = true
	}

	var missing []string
	for _, m := range spec.Mapping {
		if !observed[m.Source] {
			missing = append(missing, m.Source)
		}
	}

	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing, Observed: observedHeaders}
	}
	return nil
}

func basename(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
