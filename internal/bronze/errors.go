package bronze

import (
	"fmt"
	"strings"
)

// The load pipeline distinguishes four fatal failure kinds. All of them
// abort the enclosing transaction; none of them leave partial state.
// "already loaded" is intentionally not an error, it is a normal skip
// outcome reported through LoadResult.

// UnsupportedSourceError means no bronze spec is registered for the
// file identity. Fatal: retrying cannot help until a spec exists.
type UnsupportedSourceError struct {
	Identity string
	Key      string
}

func (e *UnsupportedSourceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("unsupported source %q (key=%s)", e.Identity, e.Key)
	}
	return fmt.Sprintf("unsupported source %q", e.Identity)
}

// MissingColumnsError reports every expected source column absent from
// the file header, alongside the full observed header list so the caller
// can diagnose the format mismatch in one pass.
type MissingColumnsError struct {
	Missing  []string
	Observed []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("csv headers missing expected columns: [%s]; found headers: [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Observed, ", "))
}

// MalformedInputError means the payload could not be decoded or parsed
// as a headered CSV. Fatal: the same bytes will fail the same way.
type MalformedInputError struct {
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed input: %s: %v", e.Reason, e.Err)
	}
	return "malformed input: " + e.Reason
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
