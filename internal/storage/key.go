package storage

import (
	"strings"
	"time"
	"unicode"

	"github.com/filmlake/ingest/internal/digest"
)

// keyTimeFormat is second-precision UTC, chosen so that lexicographic
// order of keys matches chronological order of uploads.
const keyTimeFormat = "20060102T150405Z"

// BuildKey constructs the storage key for one upload:
//
//	{sourcePrefix}/{UTC timestamp}/{digest prefix}_{sanitized filename}
//
// The timestamp keeps history browsable and sortable, the digest prefix
// disambiguates distinct uploads of identical names, and the original
// filename survives (whitespace replaced with underscores) so the schema
// router can resolve the source from the key's terminal segment.
func BuildKey(sourcePrefix string, t time.Time, d digest.Digest, filename string) string {
	var b strings.Builder
	b.WriteString(strings.Trim(sourcePrefix, "/"))
	b.WriteByte('/')
	b.WriteString(t.UTC().Format(keyTimeFormat))
	b.WriteByte('/')
	b.WriteString(d.KeyPrefix())
	b.WriteByte('_')
	b.WriteString(SanitizeFilename(filename))
	return b.String()
}

// SanitizeFilename replaces whitespace with underscores. No other
// transformation: the trailing segment must keep its original shape for
// source routing.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

// Basename returns the terminal path segment of a storage key.
func Basename(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
