package bronze

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantHeaders []string
		wantRows    int
		wantErr     bool
	}{
		{
			name:        "header and rows",
			data:        "Date,Name\n2024-01-01,Heat\n2024-01-02,Ran\n",
			wantHeaders: []string{"Date", "Name"},
			wantRows:    2,
		},
		{
			name:        "header only",
			data:        "Date,Name\n",
			wantHeaders: []string{"Date", "Name"},
			wantRows:    0,
		},
		{
			name:        "leading BOM is stripped",
			data:        "\xEF\xBB\xBFDate,Name\n2024-01-01,Heat\n",
			wantHeaders: []string{"Date", "Name"},
			wantRows:    1,
		},
		{
			name:        "headers are trimmed",
			data:        " Date , Name \n2024-01-01,Heat\n",
			wantHeaders: []string{"Date", "Name"},
			wantRows:    1,
		},
		{
			name:        "quoted field with embedded newline",
			data:        "Name,Review\nHeat,\"great\nheist\"\n",
			wantHeaders: []string{"Name", "Review"},
			wantRows:    1,
		},
		{
			name:        "ragged rows are tolerated",
			data:        "Date,Name,Year\n2024-01-01,Heat\n",
			wantHeaders: []string{"Date", "Name", "Year"},
			wantRows:    1,
		},
		{
			name:    "empty payload",
			data:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, rows, err := parseCSV([]byte(tt.data))
			if tt.wantErr {
				var malformed *MalformedInputError
				if !errors.As(err, &malformed) {
					t.Fatalf("parseCSV error = %v, want MalformedInputError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCSV unexpected error: %v", err)
			}
			if tt.wantHeaders != nil && !reflect.DeepEqual(headers, tt.wantHeaders) {
				t.Errorf("headers = %v, want %v", headers, tt.wantHeaders)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	valid := []byte("Amélie,2001")
	if got := sanitizeUTF8(valid); !reflect.DeepEqual(got, valid) {
		t.Errorf("valid input must pass through unchanged, got %q", got)
	}

	invalid := []byte{'H', 'e', 0xFF, 'a', 't'}
	got := string(sanitizeUTF8(invalid))
	if !strings.Contains(got, "�") {
		t.Errorf("invalid byte should become replacement rune, got %q", got)
	}
	if !strings.HasPrefix(got, "He") || !strings.HasSuffix(got, "at") {
		t.Errorf("surrounding bytes must survive, got %q", got)
	}
}

func TestHeaderIndex(t *testing.T) {
	idx := headerIndex([]string{"Date", "Name", "Date", "Rating"})
	want := map[string]int{"Date": 0, "Name": 1, "Rating": 3}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("headerIndex = %v, want %v (first occurrence wins)", idx, want)
	}
}
