package bronze

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"
)

// utf8BOM is the byte-order mark some export tools prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseCSV decodes data as UTF-8 (tolerating a leading BOM) and parses
// it into a header row plus data rows. A payload without a header row is
// malformed; zero data rows is a valid shape.
func parseCSV(data []byte) (headers []string, rows [][]string, err error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, &MalformedInputError{Reason: "csv parse failed", Err: err}
	}
	if len(records) == 0 {
		return nil, nil, &MalformedInputError{Reason: "csv missing header row"}
	}

	headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return headers, records[1:], nil
}

// headerIndex maps each observed header to its first position in the row.
func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune
// so a stray encoding cannot poison the warehouse.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
