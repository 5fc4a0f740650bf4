package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleTable() *Table {
	t := &Table{Headers: []string{"identifier", "success", "remaining"}}
	t.AddRow("user-1", true, 9)
	t.AddRow("user-2", false, -1)
	return t
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextFormatterTable(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, sampleTable()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "identifier") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "false") || !strings.Contains(lines[2], "-1") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestTextFormatterValue(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, "test message"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if got, want := buf.String(), "test message\n"; got != want {
		t.Errorf("FormatTo() = %q, want %q", got, want)
	}
}

func TestJSONFormatter(t *testing.T) {
	t.Run("table as records", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewFormatter(FormatJSON).FormatTo(&buf, sampleTable()); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}

		var records []map[string]string
		if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}
		if records[1]["identifier"] != "user-2" || records[1]["remaining"] != "-1" {
			t.Errorf("record = %v", records[1])
		}
	})

	t.Run("plain value", func(t *testing.T) {
		var buf bytes.Buffer
		f := &JSONFormatter{}
		if err := f.FormatTo(&buf, map[string]int{"limit": 10}); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		if got, want := strings.TrimSpace(buf.String()), `{"limit":10}`; got != want {
			t.Errorf("FormatTo() = %q, want %q", got, want)
		}
	})
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).FormatTo(&buf, *sampleTable()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	want := "identifier,success,remaining\nuser-1,true,9\nuser-2,false,-1\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := (&CSVFormatter{}).FormatTo(&buf, "not a table"); err == nil {
		t.Error("FormatTo() with non-tabular data should fail")
	}
}
